package detectors

import (
	"encoding/binary"
	"strings"
)

// Grounded on original_source/src/scanner/protocol_detectors/messaging_detectors.rs.

func init() {
	register(CategoryMessaging, mqttDetector{})
	register(CategoryMessaging, rabbitMQDetector{})
	register(CategoryMessaging, kafkaDetector{})
	register(CategoryMessaging, zookeeperDetector{})
}

type mqttDetector struct{}

func (mqttDetector) Name() string { return "MQTT" }

func (mqttDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{
			0x10, 0x16,
			0x00, 0x04,
			'M', 'Q', 'T', 'T',
			0x04,
			0x02,
			0x00, 0x3c,
			0x00, 0x04,
			't', 'e', 's', 't',
		},
	}
}

func (mqttDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 4 && response[0] == 0x20 && response[1] <= 0x02 {
		return Result{ServiceName: "MQTT-Broker", Confidence: 0.88,
			Info: infoMap("protocol", "MQTT broker")}, true
	}
	if strings.Contains(s, "mqtt") || strings.Contains(s, "mosquitto") {
		return Result{ServiceName: "MQTT-Broker", Confidence: 0.85,
			Info: infoMap("protocol", "MQTT broker response")}, true
	}
	return Result{}, false
}

type rabbitMQDetector struct{}

func (rabbitMQDetector) Name() string { return "RabbitMQ" }

func (rabbitMQDetector) ProbePayloads() [][]byte {
	return [][]byte{[]byte("AMQP\x00\x00\x09\x01")}
}

func (rabbitMQDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 8 && strings.HasPrefix(string(response), "AMQP") {
		return Result{ServiceName: "RabbitMQ-MessageQueue", Confidence: 0.90,
			Info: infoMap("protocol", "AMQP")}, true
	}
	if strings.Contains(s, "amqp") || strings.Contains(s, "rabbitmq") {
		return Result{ServiceName: "RabbitMQ-MessageQueue", Confidence: 0.85,
			Info: infoMap("protocol", "AMQP message queue")}, true
	}
	return Result{}, false
}

type kafkaDetector struct{}

func (kafkaDetector) Name() string { return "Kafka" }

func (kafkaDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{
			0x00, 0x00, 0x00, 0x17,
			0x00, 0x03,
			0x00, 0x09,
			0x00, 0x00, 0x00, 0x01,
			0x00, 0x04,
			't', 'e', 's', 't',
			0x00, 0x00, 0x00, 0x00,
			0x01,
		},
	}
}

func (kafkaDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 12 {
		correlationID := int32(binary.BigEndian.Uint32(response[4:8]))
		if correlationID == 1 {
			return Result{ServiceName: "Apache-Kafka", Confidence: 0.88,
				Info: infoMap("protocol", "Kafka binary protocol")}, true
		}
	}
	if strings.Contains(s, "kafka") || strings.Contains(s, "broker") {
		return Result{ServiceName: "Apache-Kafka", Confidence: 0.80,
			Info: infoMap("protocol", "Kafka message broker")}, true
	}
	return Result{}, false
}

type zookeeperDetector struct{}

func (zookeeperDetector) Name() string { return "Zookeeper" }

func (zookeeperDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{
			0x00, 0x00, 0x00, 0x2c,
			0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
			0x00, 0x00, 0x75, 0x30,
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x10,
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		},
	}
}

func (zookeeperDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 16 {
		zeroPrefix := response[0] == 0 && response[1] == 0 && response[2] == 0 && response[3] == 0
		if !zeroPrefix {
			return Result{ServiceName: "Apache-Zookeeper", Confidence: 0.85,
				Info: infoMap("protocol", "Zookeeper coordination service")}, true
		}
	}
	if strings.Contains(s, "zookeeper") || strings.Contains(s, "znode") {
		return Result{ServiceName: "Apache-Zookeeper", Confidence: 0.80,
			Info: infoMap("protocol", "Zookeeper service")}, true
	}
	return Result{}, false
}
