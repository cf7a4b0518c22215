package scenario

import (
	"context"
	"fmt"
	"strings"

	"ircprobe/config"
	"ircprobe/internal/session"
	"ircprobe/internal/wire"
)

// Fixtures of the mode-concatenation scenario.
const (
	ModesChannel     = config.DefaultModeChannel
	ModesNick        = "testuser"
	ModesRealname    = "Test User"
	ModesQuitMessage = "Test completed"
)

// ModeCase is one MODE mutation and the parameters it carries.
type ModeCase struct {
	Title      string
	ModeString string
	Params     []string
}

func (c ModeCase) String() string {
	return strings.TrimSpace(c.ModeString + " " + strings.Join(c.Params, " "))
}

// ModeCases are played in order on a fresh channel.
var ModeCases = []ModeCase{
	{Title: "simple flags", ModeString: "+it"},
	{Title: "mixed signs", ModeString: "+t-i"},
	{Title: "flags with parameters", ModeString: "+kl", Params: []string{"clave123", "50"}},
	{Title: "complex mix", ModeString: "+itk-l", Params: []string{"clave456"}},
}

// Modes returns the single-user scenario that sends concatenated mode
// strings and checks each resulting 324 against a local model.
func Modes(t Target) *Scenario {
	return &Scenario{Name: config.ScenarioModes, Target: t, play: playModes}
}

func playModes(ctx context.Context, r *run) error {
	r.step("Connecting " + ModesNick)
	s, err := r.connect(ctx, "tester")
	if err != nil {
		return err
	}
	if err := r.register(ctx, s, ModesNick, ModesNick, ModesRealname); err != nil {
		return err
	}
	if err := r.settle(ctx); err != nil {
		return err
	}
	if err := r.machine.To(Active); err != nil {
		return err
	}

	r.step("Joining " + ModesChannel)
	obs, err := s.JoinChannel(ctx, ModesChannel)
	if err != nil {
		return err
	}
	st, detail := replied(obs)
	r.check("joined "+ModesChannel, st, detail)
	if err := r.settle(ctx); err != nil {
		return err
	}

	model := wire.NewModeSet()
	var touched []rune
	for _, mc := range ModeCases {
		if err := r.playModeCase(ctx, s, mc, model, &touched); err != nil {
			return err
		}
	}

	r.step("Cleaning up")
	if err := r.machine.To(Closing); err != nil {
		return err
	}
	if _, err := s.PartChannel(ctx, ModesChannel, ""); err != nil {
		return err
	}
	if _, err := s.Quit(ctx, ModesQuitMessage); err != nil {
		return err
	}
	r.checkEndsWithQuit(s.Name())
	return nil
}

// playModeCase sends one mutation, folds it into model and checks the
// server's view with a bare MODE query.
func (r *run) playModeCase(ctx context.Context, s *session.Session, mc ModeCase, model *wire.ModeSet, touched *[]rune) error {
	r.step(fmt.Sprintf("%s: %s", mc.Title, mc))

	changes, _ := wire.ParseModeString(mc.ModeString, mc.Params)
	model.Apply(changes)
	for _, c := range changes {
		if !containsRune(*touched, c.Flag) && !strings.ContainsRune("ovb", c.Flag) {
			*touched = append(*touched, c.Flag)
		}
	}

	obs, err := s.SetModes(ctx, ModesChannel, mc.ModeString, mc.Params...)
	if err != nil {
		return err
	}
	st, detail := replied(obs)
	r.check("MODE "+mc.String()+" accepted", st, detail)

	if obs, err = s.GetModes(ctx, ModesChannel); err != nil {
		return err
	}
	st, detail = modesMatch(obs, model, *touched)
	r.check("modes after "+mc.String(), st, detail)

	return r.settle(ctx)
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
