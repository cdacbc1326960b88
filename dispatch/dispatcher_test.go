package dispatch

import (
	"testing"

	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"rover-remote/protocol"
)

type recorder struct {
	sent []protocol.Command
}

func (r *recorder) Send(cmd protocol.Command) bool {
	r.sent = append(r.sent, cmd)
	return true
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(rec, zaptest.NewLogger(t).Sugar()), rec
}

func feed(d *Dispatcher, events ...Event) {
	for _, ev := range events {
		d.Handle(ev)
	}
}

func TestKeyboardPressRelease(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d, KeyDown(protocol.KeyArrowUp), KeyUp(protocol.KeyArrowUp))
	test.That(t, rec.sent, test.ShouldResemble, []protocol.Command{protocol.Forward, protocol.Stop})
	test.That(t, d.Held(), test.ShouldBeEmpty)
}

func TestKeyboardAutoRepeat(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d,
		KeyDown(protocol.KeyArrowLeft),
		KeyDown(protocol.KeyArrowLeft),
		KeyDown(protocol.KeyArrowLeft),
	)
	test.That(t, rec.sent, test.ShouldResemble, []protocol.Command{protocol.Left})
	test.That(t, d.Held(), test.ShouldResemble, []string{protocol.KeyArrowLeft})
}

func TestKeyboardOverlappingKeys(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d, KeyDown(protocol.KeyArrowUp), KeyDown(protocol.KeyArrowLeft))
	test.That(t, rec.sent, test.ShouldResemble, []protocol.Command{protocol.Forward, protocol.Left})

	t.Run("release one keeps moving", func(t *testing.T) {
		feed(d, KeyUp(protocol.KeyArrowLeft))
		test.That(t, rec.sent, test.ShouldHaveLength, 2)
		test.That(t, d.Held(), test.ShouldResemble, []string{protocol.KeyArrowUp})
	})

	t.Run("release last stops once", func(t *testing.T) {
		feed(d, KeyUp(protocol.KeyArrowUp))
		test.That(t, rec.sent, test.ShouldResemble,
			[]protocol.Command{protocol.Forward, protocol.Left, protocol.Stop})
	})
}

func TestKeyboardSpaceClearsHeldKeys(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d, KeyDown(protocol.KeyArrowUp), KeyDown(protocol.KeyArrowRight))
	feed(d, KeyDown(protocol.KeySpace))
	test.That(t, rec.sent, test.ShouldResemble,
		[]protocol.Command{protocol.Forward, protocol.Right, protocol.Stop})
	test.That(t, d.Held(), test.ShouldBeEmpty)

	feed(d, KeyUp(protocol.KeySpace), KeyUp(protocol.KeyArrowUp), KeyUp(protocol.KeyArrowRight))
	test.That(t, rec.sent, test.ShouldHaveLength, 3)

	// A fresh press after the stop behaves normally.
	feed(d, KeyDown(protocol.KeyArrowUp))
	test.That(t, rec.sent[len(rec.sent)-1], test.ShouldEqual, protocol.Forward)
}

func TestGlobalStopControl(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d, KeyDown(protocol.KeyArrowDown), Click(protocol.Stop))
	test.That(t, rec.sent, test.ShouldResemble, []protocol.Command{protocol.Backward, protocol.Stop})
	test.That(t, d.Held(), test.ShouldBeEmpty)

	feed(d, Stop(Pointer))
	test.That(t, rec.sent, test.ShouldResemble,
		[]protocol.Command{protocol.Backward, protocol.Stop, protocol.Stop})
}

func TestUnknownKeysIgnored(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d, KeyDown("a"), KeyUp("a"), KeyDown("Enter"), KeyUp(protocol.KeyArrowUp))
	test.That(t, rec.sent, test.ShouldBeEmpty)
}

func TestActuatorClicks(t *testing.T) {
	for _, cmd := range []protocol.Command{
		protocol.ActuatorARaise, protocol.ActuatorALower,
		protocol.ActuatorBRaise, protocol.ActuatorBLower,
	} {
		d, rec := newTestDispatcher(t)
		emitted, ok := d.Handle(Click(cmd))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, emitted, test.ShouldEqual, cmd)
		test.That(t, rec.sent, test.ShouldResemble, []protocol.Command{cmd})
	}
}

func TestActuatorDoesNotTouchHeldKeys(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d, KeyDown(protocol.KeyArrowUp), Click(protocol.ActuatorBRaise), KeyUp(protocol.KeyArrowUp))
	test.That(t, rec.sent, test.ShouldResemble,
		[]protocol.Command{protocol.Forward, protocol.ActuatorBRaise, protocol.Stop})
}

func TestPointerHoldToRun(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d, Press(Pointer, protocol.Forward), Release(Pointer, protocol.Forward))
	test.That(t, rec.sent, test.ShouldResemble, []protocol.Command{protocol.Forward, protocol.Stop})
}

func TestTouchContextMenuStops(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d, Press(Touch, protocol.Left), Release(Touch, protocol.Left))
	test.That(t, rec.sent, test.ShouldResemble, []protocol.Command{protocol.Left, protocol.Stop})
}

func TestNonDrivePressIgnored(t *testing.T) {
	d, rec := newTestDispatcher(t)
	feed(d,
		Press(Pointer, protocol.ActuatorARaise),
		Release(Pointer, protocol.ActuatorARaise),
		Press(Touch, protocol.Stop),
		Click(protocol.Forward),
	)
	test.That(t, rec.sent, test.ShouldBeEmpty)
}

func TestMovingTracksDriveCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	test.That(t, d.Moving(), test.ShouldBeFalse)

	d.Handle(Press(Pointer, protocol.Forward))
	test.That(t, d.Moving(), test.ShouldBeTrue)
	test.That(t, d.Held(), test.ShouldBeEmpty)
	d.Handle(Click(protocol.ActuatorARaise))
	test.That(t, d.Moving(), test.ShouldBeTrue)
	d.Handle(Release(Pointer, protocol.Forward))
	test.That(t, d.Moving(), test.ShouldBeFalse)

	feed(d, KeyDown(protocol.KeyArrowUp), KeyDown(protocol.KeyArrowLeft), KeyUp(protocol.KeyArrowLeft))
	test.That(t, d.Moving(), test.ShouldBeTrue)
	d.Handle(KeyDown(protocol.KeySpace))
	test.That(t, d.Moving(), test.ShouldBeFalse)

	d.Handle(Press(Touch, protocol.Right))
	d.Handle(Stop(Touch))
	test.That(t, d.Moving(), test.ShouldBeFalse)
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	keys := ActiveKeySet{protocol.KeyArrowUp: true}
	next, cmd, ok := Transition(keys, KeyDown(protocol.KeyArrowLeft))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cmd, test.ShouldEqual, protocol.Left)
	test.That(t, next.Held(), test.ShouldResemble, []string{protocol.KeyArrowLeft, protocol.KeyArrowUp})
	test.That(t, keys.Held(), test.ShouldResemble, []string{protocol.KeyArrowUp})

	next, _, ok = Transition(next, KeyUp(protocol.KeyArrowUp))
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, next.Len(), test.ShouldEqual, 1)
}

func TestEmissionsStayInVocabulary(t *testing.T) {
	d, rec := newTestDispatcher(t)
	var events []Event
	keys := append(protocol.DriveKeys(), protocol.KeySpace, "x")
	for _, k := range keys {
		events = append(events, KeyDown(k), KeyDown(k), KeyUp(k))
	}
	for c := 0; c < 256; c++ {
		cmd := protocol.Command(c)
		events = append(events, Press(Pointer, cmd), Release(Touch, cmd), Click(cmd))
	}
	feed(d, events...)
	test.That(t, rec.sent, test.ShouldNotBeEmpty)
	for _, cmd := range rec.sent {
		test.That(t, cmd.Valid(), test.ShouldBeTrue)
	}
}
