package core

import "testing"

func TestParseTLSServerHelloVersion(t *testing.T) {
	tests := []struct {
		name      string
		response  []byte
		wantMajor byte
		wantMinor byte
		wantOK    bool
	}{
		{
			name: "TLS 1.2 server hello",
			response: []byte{
				0x16, 0x03, 0x03, 0x00, 0x06, // record header: Handshake, v3.3, length 6
				0x02, 0x00, 0x00, 0x02, 0x03, 0x03, // ServerHello header + server_version
			},
			wantMajor: 0x03, wantMinor: 0x03, wantOK: true,
		},
		{
			name:     "not a handshake record",
			response: []byte{0x17, 0x03, 0x03, 0x00, 0x01, 0x00},
			wantOK:   false,
		},
		{
			name:     "truncated before server_version",
			response: []byte{0x16, 0x03, 0x03, 0x00, 0x04, 0x02, 0x00, 0x00, 0x02},
			wantOK:   false,
		},
		{
			name:     "empty response",
			response: nil,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			major, minor, ok := parseTLSServerHelloVersion(tt.response)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v; want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if major != tt.wantMajor || minor != tt.wantMinor {
				t.Errorf("version = %d.%d; want %d.%d", major, minor, tt.wantMajor, tt.wantMinor)
			}
		})
	}
}
