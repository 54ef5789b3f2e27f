package plan

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/labkit/imucal/pkg/cases"
	"github.com/labkit/imucal/pkg/nus/nustest"
	"github.com/labkit/imucal/pkg/operator"
)

func TestParseValidates(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid",
			yaml: "name: p\nsteps:\n  - send: crt\n  - sleep: 2s\n  - expect: ok\n    within: 1s\n",
		},
		{
			name:    "no steps",
			yaml:    "name: p\n",
			wantErr: "no steps",
		},
		{
			name:    "no name",
			yaml:    "steps:\n  - send: crt\n",
			wantErr: "no name",
		},
		{
			name:    "two actions",
			yaml:    "name: p\nsteps:\n  - send: crt\n    wait: accel\n",
			wantErr: "several actions",
		},
		{
			name:    "empty step",
			yaml:    "name: p\nsteps:\n  - {}\n",
			wantErr: "no action",
		},
		{
			name:    "bad wait",
			yaml:    "name: p\nsteps:\n  - wait: compass\n",
			wantErr: "wait must be",
		},
		{
			name:    "within without expect",
			yaml:    "name: p\nsteps:\n  - send: crt\n    within: 1s\n",
			wantErr: "within only applies",
		},
		{
			name:    "unknown check",
			yaml:    "name: p\nsteps:\n  - check: vibes\n",
			wantErr: "unknown check",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Parse() = %v", err)
				}
				if p.Steps[1].Sleep != 2*time.Second || p.Steps[2].Within != time.Second {
					t.Errorf("durations not decoded: %+v", p.Steps)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRun(t *testing.T) {
	link := nustest.New("F3:D9:31:80:1B:0B").
		On("actse 52 100", "Accel Accuracy 3").
		On("aconf 4 2 2", "Accel Range set to 4G")

	p, err := Parse([]byte(`
name: smoke
address: F3:D9:31:80:1B:0B
steps:
  - send: actse 52 100
  - wait: accel
  - send: aconf 4 2 2
  - expect: Accel Range set to 4G
  - expect: Accel Range set to 8G
    within: 10ms
  - notify: done
  - send: "-l 0"
`))
	if err != nil {
		t.Fatal(err)
	}

	prompt := &operator.Recorder{}
	env := &cases.Env{
		OutputDir: filepath.Join(t.TempDir(), "output"),
		Dial:      link.Dialer(),
		Prompter:  prompt,
		Sleep:     func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
	rep, err := p.Run(context.Background(), env)
	if err != nil {
		t.Fatal(err)
	}
	if env.Address != "F3:D9:31:80:1B:0B" {
		t.Errorf("plan address not applied: %q", env.Address)
	}
	if len(rep.Results) != 2 || !rep.Results[0].Pass || rep.Results[1].Pass {
		t.Errorf("results = %v", rep.Results)
	}
	want := []string{"crt", "-f l", "actse 52 100", "aconf 4 2 2", "-l 0"}
	if got := link.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %q", got)
	}
	if !reflect.DeepEqual(prompt.Notices, []string{"done"}) {
		t.Errorf("notices = %q", prompt.Notices)
	}
}

func TestCheckNeedsFetch(t *testing.T) {
	link := nustest.New("F3:D9:31:80:1B:0B")
	p, err := Parse([]byte("name: x\nreset: false\nsteps:\n  - check: heading\n"))
	if err != nil {
		t.Fatal(err)
	}
	env := &cases.Env{Address: "F3:D9:31:80:1B:0B", Dial: link.Dialer()}
	if _, err := p.Run(context.Background(), env); err == nil || !strings.Contains(err.Error(), "preceding fetch") {
		t.Errorf("Run() = %v", err)
	}
	if len(link.Commands()) != 0 {
		t.Errorf("reset: false should send nothing, got %q", link.Commands())
	}
}
