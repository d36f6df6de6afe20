package metadata

import (
	"testing"
	"time"
)

func TestDecodeEngine(t *testing.T) {
	tests := []struct {
		frame   string
		typ     byte
		data    string
		wantErr bool
	}{
		{"2", eioPing, "", false},
		{"3probe", eioPong, "probe", false},
		{`0{"sid":"x"}`, eioOpen, `{"sid":"x"}`, false},
		{`42["a"]`, eioMessage, `2["a"]`, false},
		{"", 0, "", true},
		{"9", 0, "", true},
	}
	for _, tt := range tests {
		p, err := decodeEngine(tt.frame)
		if (err != nil) != tt.wantErr {
			t.Errorf("decodeEngine(%q) error = %v, wantErr %v", tt.frame, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if p.typ != tt.typ || p.data != tt.data {
			t.Errorf("decodeEngine(%q) = {%q %q}, want {%q %q}", tt.frame, p.typ, p.data, tt.typ, tt.data)
		}
	}
}

func TestDecodeOpenReadTimeout(t *testing.T) {
	info, err := decodeOpen(`{"sid":"abc","upgrades":[],"pingInterval":1000,"pingTimeout":500,"maxPayload":1000000}`)
	if err != nil {
		t.Fatalf("decodeOpen: %v", err)
	}
	if info.SID != "abc" {
		t.Errorf("SID = %q, want abc", info.SID)
	}
	if got := info.readTimeout(); got != 1500*time.Millisecond {
		t.Errorf("readTimeout() = %v, want 1.5s", got)
	}
	if got := (openInfo{}).readTimeout(); got != defaultPingInterval+defaultPingTimeout {
		t.Errorf("default readTimeout() = %v", got)
	}
	if _, err := decodeOpen("not json"); err == nil {
		t.Error("expected error for invalid open payload")
	}
}

func TestDecodeSocket(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		typ     byte
		nsp     string
		ack     int
		data    string
		wantErr bool
	}{
		{"connect default", `0{"sid":"s1"}`, sioConnect, "/", -1, `{"sid":"s1"}`, false},
		{"event", `2["player-metadata",{"content":{"name":"A"}}]`, sioEvent, "/", -1, `["player-metadata",{"content":{"name":"A"}}]`, false},
		{"event with namespace", `2/live,["x"]`, sioEvent, "/live", -1, `["x"]`, false},
		{"event with ack", `2/live,13["x"]`, sioEvent, "/live", 13, `["x"]`, false},
		{"ack id only", `212["x"]`, sioEvent, "/", 12, `["x"]`, false},
		{"bare namespace", `1/live`, sioDisconnect, "/live", -1, "", false},
		{"disconnect", `1`, sioDisconnect, "/", -1, "", false},
		{"connect error", `4{"message":"nope"}`, sioConnectError, "/", -1, `{"message":"nope"}`, false},
		{"binary", `51-["x",{"_placeholder":true,"num":0}]`, 0, "", 0, "", true},
		{"bad json", `2["x"`, 0, "", 0, "", true},
		{"unknown type", `9`, 0, "", 0, "", true},
		{"empty", ``, 0, "", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decodeSocket(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeSocket(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.typ != tt.typ || p.namespace != tt.nsp || p.ackID != tt.ack || string(p.data) != tt.data {
				t.Errorf("decodeSocket(%q) = {%q %q %d %s}, want {%q %q %d %s}",
					tt.in, p.typ, p.namespace, p.ackID, p.data, tt.typ, tt.nsp, tt.ack, tt.data)
			}
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	name, args, err := decodeEvent([]byte(`["player-metadata",{"metadata":{"title":"T"}},2]`))
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if name != "player-metadata" {
		t.Errorf("name = %q", name)
	}
	if len(args) != 2 {
		t.Errorf("len(args) = %d, want 2", len(args))
	}

	for _, bad := range []string{`[]`, `{"a":1}`, `[1]`} {
		if _, _, err := decodeEvent([]byte(bad)); err == nil {
			t.Errorf("decodeEvent(%s) expected error", bad)
		}
	}
}

func TestEncodeConnect(t *testing.T) {
	if got := encodeConnect("/"); got != "40" {
		t.Errorf("encodeConnect(/) = %q, want 40", got)
	}
	if got := encodeConnect("/live"); got != "40/live," {
		t.Errorf("encodeConnect(/live) = %q", got)
	}
	if got := encodeDisconnect(""); got != "41" {
		t.Errorf("encodeDisconnect() = %q, want 41", got)
	}
}
