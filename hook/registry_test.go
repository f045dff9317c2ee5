package hook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JoooooMei/subscription-genie/hook"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/types"
)

type recordingHook struct {
	name    string
	created int
	err     error
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) OnServiceCreated(_ context.Context, _ *service.Service) error {
	h.created++
	return h.err
}

type namedOnly struct{ name string }

func (h namedOnly) Name() string { return h.name }

func TestRegisterAndGet(t *testing.T) {
	r := hook.NewRegistry()

	h := &recordingHook{name: "recorder"}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recordingHook{name: "recorder"}); err == nil {
		t.Error("duplicate registration must fail")
	}

	if got := r.Get("recorder"); got != hook.Hook(h) {
		t.Errorf("Get = %v, want the registered hook", got)
	}
	if got := r.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestEmitDispatchesToImplementers(t *testing.T) {
	r := hook.NewRegistry()

	h := &recordingHook{name: "recorder"}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// A hook without the interface is skipped, not an error.
	if err := r.Register(namedOnly{name: "bystander"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	svc := &service.Service{
		Entity: types.NewEntityAt(time.Now()),
		ID:     1,
		Owner:  "alice",
	}
	r.EmitServiceCreated(context.Background(), svc)
	r.EmitServiceCreated(context.Background(), svc)

	if h.created != 2 {
		t.Errorf("created = %d, want 2", h.created)
	}
}

func TestEmitSwallowsHookErrors(t *testing.T) {
	r := hook.NewRegistry()

	h := &recordingHook{name: "failing", err: errors.New("boom")}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Must not panic or propagate; failures are log-only.
	r.EmitServiceCreated(context.Background(), &service.Service{ID: 1})
	if h.created != 1 {
		t.Errorf("created = %d, want 1", h.created)
	}
}

func TestList(t *testing.T) {
	r := hook.NewRegistry()

	for _, name := range []string{"a", "b", "c"} {
		if err := r.Register(namedOnly{name: name}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	hooks := r.List()
	if len(hooks) != 3 {
		t.Fatalf("len(List) = %d, want 3", len(hooks))
	}
	for i, name := range []string{"a", "b", "c"} {
		if hooks[i].Name() != name {
			t.Errorf("hooks[%d] = %q, want %q", i, hooks[i].Name(), name)
		}
	}
}
