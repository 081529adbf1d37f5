package aqara

import (
	"context"
	"strings"
	"testing"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/shell"
)

const motorQuery = "/data/bin/mi_motor -g"

func motorShell(state string) *fakeShell {
	return newFakeShell(shell.RootAdminDialect, func(cmd string) string {
		switch {
		case cmd == motorQuery:
			return state
		case strings.HasPrefix(cmd, "[ -e /data/bin/mi_motor ]"):
			return "yes"
		}
		return ""
	})
}

func readyClient(t *testing.T, fake *fakeShell) *Client {
	t.Helper()
	c := NewClient(fake)
	if !c.DetectMotor(context.Background()) {
		t.Fatal("motor helper not detected")
	}
	return c
}

func moveCommands(fake *fakeShell) []string {
	var out []string
	for _, c := range fake.received() {
		if strings.HasPrefix(c, "/data/bin/mi_motor -x") {
			out = append(out, c)
		}
	}
	return out
}

func TestMotorState_Step(t *testing.T) {
	origin := MotorState{}
	cases := []struct {
		dir  Direction
		x, y float64
	}{
		{Up, 0, 3},
		{Down, 0, -3},
		{Left, 3, 0},
		{Right, -3, 0},
	}
	for _, tc := range cases {
		got := origin.Step(tc.dir)
		if got.AngleX != tc.x || got.AngleY != tc.y {
			t.Errorf("Step(%s) = (%v, %v), want (%v, %v)", tc.dir, got.AngleX, got.AngleY, tc.x, tc.y)
		}
	}

	edge := MotorState{AngleX: 169, AngleY: 49}
	if got := edge.Step(Left); got.AngleX != MaxAngleX {
		t.Errorf("Step(left) at edge = %v, want %v", got.AngleX, MaxAngleX)
	}
	if got := edge.Step(Up); got.AngleY != MaxAngleY {
		t.Errorf("Step(up) at edge = %v, want %v", got.AngleY, MaxAngleY)
	}
}

func TestParseMotorState(t *testing.T) {
	st, err := ParseMotorState("\r\n{\"angle_x\": 12.5, \"angle_y\": \"-4\", \"span_x\": 10, \"span_y\": 5}")
	if err != nil {
		t.Fatalf("ParseMotorState: %s", err)
	}
	want := MotorState{AngleX: 12.5, AngleY: -4, SpanX: 10, SpanY: 5}
	if *st != want {
		t.Errorf("ParseMotorState = %+v, want %+v", *st, want)
	}

	for _, bad := range []string{
		"",
		"mi_motor: not found",
		`{"angle_x": 1, "angle_y": 2}`,
		`{"angle_x": "left", "angle_y": 0, "span_x": 0, "span_y": 0}`,
	} {
		if _, err := ParseMotorState(bad); err == nil {
			t.Errorf("ParseMotorState(%q) succeeded", bad)
		}
	}
}

func TestMove(t *testing.T) {
	fake := motorShell(`{"angle_x":0,"angle_y":0,"span_x":1,"span_y":1}`)
	c := readyClient(t, fake)

	c.Move(context.Background(), Up, 20, 30)
	got := moveCommands(fake)
	if len(got) != 1 || got[0] != "/data/bin/mi_motor -x 0 -y 3 -a 20 -b 30" {
		t.Errorf("move commands = %q", got)
	}

	c.Move(context.Background(), Right, 0, 0)
	got = moveCommands(fake)
	if len(got) != 2 || got[1] != "/data/bin/mi_motor -x -3 -y 0 -a 0 -b 0" {
		t.Errorf("move commands = %q", got)
	}

	writes := fake.propertyWrites()
	want := []string{
		PropPtzMoving + "=true", PropPtzMoving + "=false",
		PropPtzMoving + "=true", PropPtzMoving + "=false",
	}
	if strings.Join(writes, ",") != strings.Join(want, ",") {
		t.Errorf("flag writes = %v, want %v", writes, want)
	}
}

func TestMove_MalformedStateResetsFlag(t *testing.T) {
	fake := motorShell("Segmentation fault")
	c := readyClient(t, fake)

	c.Move(context.Background(), Down, 0, 0)
	if got := moveCommands(fake); len(got) != 0 {
		t.Errorf("move issued on unreadable state: %q", got)
	}
	writes := fake.propertyWrites()
	if len(writes) != 1 || writes[0] != PropPtzMoving+"=false" {
		t.Errorf("flag writes = %v", writes)
	}
}

func TestMove_WithoutMotorHelper(t *testing.T) {
	fake := newFakeShell(shell.StandardDialect, func(string) string { return "no" })
	c := NewClient(fake)
	if c.DetectMotor(context.Background()) {
		t.Fatal("motor helper detected")
	}

	c.Move(context.Background(), Up, 0, 0)
	x := 10.0
	c.MoveToPreset(context.Background(), &x, nil, nil, nil)
	if n := fake.count(motorQuery); n != 0 {
		t.Errorf("motor queried %d times", n)
	}
	if len(fake.propertyWrites()) != 0 {
		t.Errorf("flag written: %v", fake.propertyWrites())
	}
}

func TestMoveToPreset(t *testing.T) {
	fake := motorShell(`{"angle_x":-20,"angle_y":5,"span_x":7,"span_y":8}`)
	c := readyClient(t, fake)

	x, spanY := 45.5, 2
	c.MoveToPreset(context.Background(), &x, nil, nil, &spanY)
	got := moveCommands(fake)
	if len(got) != 1 || got[0] != "/data/bin/mi_motor -x 45.5 -y 5 -a 7 -b 2" {
		t.Errorf("move commands = %q", got)
	}

	y := 90.0
	c.MoveToPreset(context.Background(), nil, &y, nil, nil)
	got = moveCommands(fake)
	if len(got) != 2 || got[1] != "/data/bin/mi_motor -x -20 -y 50 -a 7 -b 8" {
		t.Errorf("clamped move = %q", got)
	}
}

func TestMoveToPreset_AllUnsetIsNoop(t *testing.T) {
	fake := motorShell(`{"angle_x":0,"angle_y":0,"span_x":0,"span_y":0}`)
	c := readyClient(t, fake)
	before := len(fake.received())

	c.MoveToPreset(context.Background(), nil, nil, nil, nil)
	if after := len(fake.received()); after != before {
		t.Errorf("no-op preset issued commands: %q", fake.received()[before:])
	}
	if len(fake.propertyWrites()) != 0 {
		t.Errorf("no-op preset wrote flags: %v", fake.propertyWrites())
	}
}

func TestParseDirection(t *testing.T) {
	for _, s := range []string{"up", "DOWN", " left ", "right", "preset"} {
		if _, err := ParseDirection(s); err != nil {
			t.Errorf("ParseDirection(%q): %s", s, err)
		}
	}
	if _, err := ParseDirection("zoom"); err == nil {
		t.Error("ParseDirection(zoom) succeeded")
	}
}
