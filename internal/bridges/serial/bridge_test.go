package serial

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/engine"
)

// startControllerServer serves one fake controller with identity on a
// local TCP port, as a ser2net bridge would.
func startControllerServer(t *testing.T, identity string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			fakeController(conn, identity, nil, nil)
		}
	}()
	return "tcp://" + ln.Addr().String()
}

func testConfig(ports ...string) Config {
	return Config{
		Ports:             ports,
		HandshakeInterval: 10 * time.Millisecond,
		HandshakeTimeout:  2 * time.Second,
	}
}

func TestConnect_AssignsLanes(t *testing.T) {
	// Port order does not decide the lane.
	sledgeURL := startControllerServer(t, sledgeIdentity)
	armURL := startControllerServer(t, armIdentity)

	b, err := Connect(context.Background(), testConfig(sledgeURL, armURL), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer b.Close()

	lanes := b.Lanes()
	arm, ok := lanes.Arm.(*Link)
	if !ok || arm.Port() != armURL {
		t.Errorf("arm lane = %v, want link on %s", lanes.Arm, armURL)
	}
	sledge, ok := lanes.Sledge.(*Link)
	if !ok || sledge.Port() != sledgeURL {
		t.Errorf("sledge lane = %v, want link on %s", lanes.Sledge, sledgeURL)
	}
	if err := b.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if stats := b.Stats(); len(stats) != 2 || stats[0].Class != command.Arm {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestConnect_DrivesEngine(t *testing.T) {
	b, err := Connect(context.Background(), testConfig(
		startControllerServer(t, armIdentity),
		startControllerServer(t, sledgeIdentity),
	), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer b.Close()

	e := engine.New(engine.Deps{}, engine.Options{PollInterval: time.Millisecond, CompletionTimeout: 2 * time.Second})
	e.Attach(engine.Physical, b.Lanes())

	cmds := []command.Command{
		{Opcode: "moveToSide_SLOT0", Class: command.Arm},
		{Opcode: "reference", Class: command.Sledge},
		{Opcode: "home", Class: command.Sledge},
		{Opcode: "ledCheck", Class: command.Arm},
	}
	run, err := e.Simulate(context.Background(), cmds, []engine.Backend{engine.Physical}, nil)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if run.Completed != len(cmds) {
		t.Errorf("Completed = %d, want %d", run.Completed, len(cmds))
	}
}

func TestConnect_Failures(t *testing.T) {
	tests := []struct {
		name    string
		ports   func(t *testing.T) []string
		wantErr error
	}{
		{
			name: "two arms",
			ports: func(t *testing.T) []string {
				return []string{startControllerServer(t, armIdentity), startControllerServer(t, armIdentity)}
			},
			wantErr: ErrLaneConflict,
		},
		{
			name: "sledge missing",
			ports: func(t *testing.T) []string {
				return []string{startControllerServer(t, armIdentity)}
			},
			wantErr: ErrHandshakeFailed,
		},
		{
			name:    "bad url",
			ports:   func(*testing.T) []string { return []string{"udp://127.0.0.1:1"} },
			wantErr: ErrConnectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Connect(context.Background(), testConfig(tt.ports(t)...), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
