package instrumentation

import (
	"testing"

	"github.com/dbalsom/martypc/hardware/bus"
	"github.com/dbalsom/martypc/logger"
)

func TestSetAndHitExecBreak(t *testing.T) {
	b := bus.NewBus()
	bp := NewBreakpoints(b)

	bp.Set(BreakExec, 0x1000)
	if !bp.AnyExecHit(0x1000) {
		t.Errorf("AnyExecHit(0x1000) = false after Set, want true")
	}
	if bp.AnyExecHit(0x1001) {
		t.Errorf("AnyExecHit(0x1001) = true, want false")
	}
}

func TestClearDisarmsBreakpoint(t *testing.T) {
	b := bus.NewBus()
	bp := NewBreakpoints(b)

	bp.Set(BreakRead, 0x2000)
	bp.Clear(0x2000)
	if bp.Hit(BreakRead, 0x2000) {
		t.Errorf("Hit() = true after Clear, want false")
	}
}

func TestClearAllDisarmsEveryBreakpoint(t *testing.T) {
	b := bus.NewBus()
	bp := NewBreakpoints(b)

	bp.Set(BreakExec, 0x3000)
	bp.Set(BreakWrite, 0x4000)
	bp.ClearAll()

	if bp.Hit(BreakExec, 0x3000) || bp.Hit(BreakWrite, 0x4000) {
		t.Errorf("breakpoints still armed after ClearAll")
	}
}

func TestDistinctKindsDoNotAlias(t *testing.T) {
	b := bus.NewBus()
	bp := NewBreakpoints(b)

	bp.Set(BreakWrite, 0x5000)
	if bp.Hit(BreakRead, 0x5000) {
		t.Errorf("BreakWrite leaked into BreakRead's flag bit")
	}
	if !bp.Hit(BreakWrite, 0x5000) {
		t.Errorf("BreakWrite not armed at 0x5000")
	}
}

func TestCheckpointRegistersOnBus(t *testing.T) {
	b := bus.NewBus()
	bp := NewBreakpoints(b)

	bp.Checkpoint(0x6000, "label", "description", logger.Info)
	if !b.HasFlag(0x6000, bus.FlagCheckpoint) {
		t.Errorf("Checkpoint() did not set FlagCheckpoint on the bus")
	}
}

func TestStopwatchMeasuresElapsedTicks(t *testing.T) {
	sw := NewStopwatch(0x100, 0x200)

	sw.Observe(0x100, 10, 10)
	if _, ok := sw.Result(); ok {
		t.Fatalf("Result() available before StopAddr was observed")
	}

	sw.Observe(0x150, 10, 20)
	sw.Observe(0x200, 20, 30)

	elapsed, ok := sw.Result()
	if !ok {
		t.Fatalf("Result() not available after StopAddr observed")
	}
	if elapsed != 20 {
		t.Errorf("elapsed = %d, want 20", elapsed)
	}
}

func TestStopwatchIgnoresStopBeforeStart(t *testing.T) {
	sw := NewStopwatch(0x100, 0x200)

	sw.Observe(0x200, 5, 5)
	if _, ok := sw.Result(); ok {
		t.Errorf("Result() available after a stop address hit with no prior start")
	}
}

func TestStopwatchRearmsAfterStop(t *testing.T) {
	sw := NewStopwatch(0x100, 0x200)

	sw.Observe(0x100, 0, 0)
	sw.Observe(0x200, 0, 5)
	sw.Observe(0x100, 10, 10)
	sw.Observe(0x200, 10, 13)

	elapsed, ok := sw.Result()
	if !ok || elapsed != 3 {
		t.Errorf("Result() = (%d, %v), want (3, true) for the second lap", elapsed, ok)
	}
}
