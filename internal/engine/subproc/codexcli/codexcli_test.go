package codexcli

import (
	"reflect"
	"testing"

	"github.com/haasonsaas/relay/internal/engine"
)

func TestBuildArgsFreshRun(t *testing.T) {
	s := New()
	args := s.BuildArgs(&engine.Params{Prompt: "do the thing"}, "", false)
	want := []string{"exec", "--json", "do the thing"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestBuildArgsResumeThread(t *testing.T) {
	s := New()
	args := s.BuildArgs(&engine.Params{Prompt: "continue", Model: "gpt-5-codex"}, "thread-9", false)
	want := []string{"exec", "resume", "thread-9", "--json", "--model", "gpt-5-codex", "continue"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestBuildArgsStdinUsesDash(t *testing.T) {
	s := New()
	args := s.BuildArgs(&engine.Params{Prompt: "huge"}, "", true)
	if args[len(args)-1] != "-" {
		t.Errorf("args = %v, want trailing -", args)
	}
	for _, a := range args {
		if a == "huge" {
			t.Fatal("prompt appeared as an argument in stdin mode")
		}
	}
}

func TestParseLine(t *testing.T) {
	s := New()

	parsed, err := s.ParseLine([]byte(`{"type":"thread.started","thread_id":"th-1"}`))
	if err != nil || parsed.Handle != "th-1" {
		t.Errorf("thread.started = %+v, err %v", parsed, err)
	}

	parsed, err = s.ParseLine([]byte(`{"type":"item.completed","item":{"type":"agent_message","text":"hi"}}`))
	if err != nil || parsed.Delta != "hi" {
		t.Errorf("agent_message = %+v, err %v", parsed, err)
	}

	parsed, err = s.ParseLine([]byte(`{"type":"item.completed","item":{"type":"command_execution","text":"ls"}}`))
	if err != nil || parsed.Delta != "" || parsed.Final != nil {
		t.Errorf("command_execution should be silent: %+v", parsed)
	}

	parsed, err = s.ParseLine([]byte(`{"type":"turn.completed"}`))
	if err != nil || parsed.Final == nil || parsed.Final.Text != "" {
		t.Errorf("turn.completed = %+v, want empty final (deltas stand)", parsed)
	}
}

func TestCapabilitiesIncludeSessions(t *testing.T) {
	caps := New().Capabilities()
	if !caps.Has(engine.CapSessions) {
		t.Error("codex must declare sessions (externally resumed thread)")
	}
	if caps.Has(engine.CapToolsWeb) {
		t.Error("codex does not declare web tools")
	}
}
