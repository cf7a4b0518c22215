package scenario

import (
	"testing"

	"gopkg.in/sorcix/irc.v2"

	"ircprobe/internal/session"
	"ircprobe/internal/wire"
)

func reply324(params ...string) session.Observation {
	m := &irc.Message{Command: irc.RPL_CHANNELMODEIS, Params: append([]string{"testuser", "#testchan"}, params...)}
	return session.Observation{Matched: m, Messages: []*irc.Message{m}}
}

func model(modeString string, params ...string) *wire.ModeSet {
	set := wire.NewModeSet()
	changes, _ := wire.ParseModeString(modeString, params)
	set.Apply(changes)
	return set
}

func TestModesMatch(t *testing.T) {
	tests := []struct {
		name    string
		obs     session.Observation
		want    *wire.ModeSet
		touched string
		status  Status
	}{
		{"exact", reply324("+it"), model("+it"), "it", Pass},
		{"any order", reply324("+ti"), model("+it"), "it", Pass},
		{"extra untouched flag", reply324("+int"), model("+it"), "it", Pass},
		{"missing flag", reply324("+t"), model("+it"), "it", Fail},
		{"removed flag still set", reply324("+it"), model("+t"), "it", Fail},
		{"params in order", reply324("+klt", "clave123", "50"), model("+klt", "clave123", "50"), "iklt", Pass},
		{"params swapped", reply324("+lkt", "clave123", "50"), model("+klt", "clave123", "50"), "iklt", Fail},
		{"key hidden", reply324("+klt", "*", "50"), model("+klt", "clave123", "50"), "iklt", Pass},
		{"params omitted", reply324("+klt"), model("+klt", "clave123", "50"), "iklt", Pass},
		{"single trailing param", reply324("+itk clave456"), model("+itk", "clave456"), "iklt", Pass},
		{"single trailing param, l kept", reply324("+iklt clave456 50"), model("+itk", "clave456"), "iklt", Fail},
		{"no reply", session.Observation{}, model("+it"), "it", Unobserved},
		{"refused", session.Observation{Rejected: &irc.Message{Command: irc.ERR_CHANOPRIVSNEEDED}}, model("+it"), "it", Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, detail := modesMatch(tt.obs, tt.want, []rune(tt.touched))
			if st != tt.status {
				t.Errorf("status = %s (%s), want %s", st, detail, tt.status)
			}
		})
	}
}

func TestNamesAndList(t *testing.T) {
	names := &irc.Message{Command: irc.RPL_NAMREPLY, Params: []string{"alice", "=", "#test", "@alice bob"}}
	end := &irc.Message{Command: irc.RPL_ENDOFNAMES, Params: []string{"alice", "#test", "End"}}
	obs := session.Observation{Messages: []*irc.Message{names, end}, Matched: end}
	if st, _ := namesInclude(obs, "alice", "bob"); st != Pass {
		t.Errorf("names status = %s", st)
	}
	if st, _ := namesInclude(obs, "alice", "carol"); st != Fail {
		t.Errorf("missing nick status = %s", st)
	}
	if st, _ := namesInclude(session.Observation{}, "alice"); st != Unobserved {
		t.Errorf("silent status = %s", st)
	}

	list := &irc.Message{Command: irc.RPL_LIST, Params: []string{"bob", "#test", "2", ""}}
	listEnd := &irc.Message{Command: irc.RPL_LISTEND, Params: []string{"bob", "End"}}
	obs = session.Observation{Messages: []*irc.Message{list, listEnd}, Matched: listEnd}
	if st, _ := listIncludes(obs, "#TEST"); st != Pass {
		t.Errorf("list status = %s", st)
	}
	if st, _ := listIncludes(obs, "#other"); st != Fail {
		t.Errorf("missing channel status = %s", st)
	}
}

func TestTopicIs(t *testing.T) {
	topic := &irc.Message{Command: irc.RPL_TOPIC, Params: []string{"bob", "#test", "Canal de prueba para IRC"}}
	none := &irc.Message{Command: irc.RPL_NOTOPIC, Params: []string{"bob", "#test", "No topic is set"}}
	tests := []struct {
		obs  session.Observation
		want Status
	}{
		{session.Observation{Matched: topic}, Pass},
		{session.Observation{Matched: none}, Fail},
		{session.Observation{}, Unobserved},
	}
	for _, tt := range tests {
		if st, detail := topicIs(tt.obs, "Canal de prueba para IRC"); st != tt.want {
			t.Errorf("status = %s (%s), want %s", st, detail, tt.want)
		}
	}
}
