package transport

import "testing"

func TestParseProfileURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ProfileURL
		wantErr bool
	}{
		{
			name: "udp with trailing slash",
			raw:  "opc.udp://239.0.0.1:4840/",
			want: ProfileURL{Scheme: "opc.udp", Host: "239.0.0.1", Port: 4840},
		},
		{
			name: "mqtt with topic path",
			raw:  "opc.mqtt://broker.local:1883/plant/boiler1",
			want: ProfileURL{Scheme: "opc.mqtt", Host: "broker.local", Port: 1883, Path: "plant/boiler1"},
		},
		{
			name: "nats with subject path",
			raw:  "opc.nats://nats.local:4222/plant.boiler1",
			want: ProfileURL{Scheme: "opc.nats", Host: "nats.local", Port: 4222, Path: "plant.boiler1"},
		},
		{
			name: "ethernet interface",
			raw:  "opc.eth://eth0",
			want: ProfileURL{Scheme: "opc.eth", Host: "eth0"},
		},
		{
			name:    "missing scheme separator",
			raw:     "239.0.0.1:4840",
			wantErr: true,
		},
		{
			name:    "unknown scheme",
			raw:     "opc.tcp://localhost:4840",
			wantErr: true,
		},
		{
			name:    "missing host",
			raw:     "opc.udp:///",
			wantErr: true,
		},
		{
			name:    "non-numeric port",
			raw:     "opc.udp://host:notaport/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfileURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseProfileURL(%q) = %+v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProfileURL(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseProfileURL(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestProfileURL_Addr(t *testing.T) {
	u := ProfileURL{Host: "localhost", Port: 1883}
	if got, want := u.Addr(), "localhost:1883"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}
