package ui

import (
	"testing"
	"time"

	"dgusui/core"
	"dgusui/protocol"
)

func TestWaitPlain(t *testing.T) {
	h := newHarness(t)
	h.open()

	if err := h.d.Wait().WaitMessage("Please wait"); err != nil {
		t.Fatal(err)
	}
	h.expectPage(PageWaiting)
	s := h.sent()
	if len(s.messages) != 1 || s.messages[0] != "Please wait" {
		t.Errorf("Messages %q", s.messages)
	}
	if s.lastPage() != Page(PageWaiting.Number()) {
		t.Errorf("Expected picture %d, got %v", PageWaiting.Number(), s.pages)
	}

	// No callback: the keys are ignored
	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)
	h.d.HandleKey(protocol.ActionWait, protocol.KeySave)
	h.expectPage(PageWaiting)
	if h.settings.saves != 0 {
		t.Error("Continue without a callback must not save")
	}
}

func TestWaitBackCallback(t *testing.T) {
	h := newHarness(t)
	h.open()
	h.d.HandleKey(protocol.ActionScreen, KeyMenuBrightness)

	calls := 0
	h.d.Wait().WaitBack("Working", func() bool {
		calls++
		return false
	})
	h.expectPage(PageWaitBack)

	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)
	if calls != 1 {
		t.Fatalf("Expected 1 call, got %d", calls)
	}
	h.expectPage(PageWaitBack)

	// The callback runs once
	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWaitBackContinue(t *testing.T) {
	h := newHarness(t)
	h.open()
	h.d.HandleKey(protocol.ActionScreen, KeyMenuBrightness)

	var back, cont int
	h.d.Wait().WaitBackContinue("Sure?",
		func() bool { back++; return true },
		func() bool { cont++; return true },
	)
	h.expectPage(PageWaitBackContinue)

	h.d.HandleKey(protocol.ActionWait, protocol.KeySave)
	if cont != 1 || back != 0 {
		t.Errorf("back=%d continue=%d", back, cont)
	}
	// Continue returns to the page the wait was shown from
	h.expectPage(PageBrightness)
	if _, ok := h.d.Navigator().Forward(); ok {
		t.Error("Forward mark should be consumed")
	}
}

func TestWaitBackDropsTemporaryForward(t *testing.T) {
	h := newHarness(t)
	h.open()
	h.d.HandleKey(protocol.ActionScreen, KeyMenuLoadUnload)
	h.expectPage(PageLoadUnload)

	h.d.Wait().WaitBack("Heating...", func() bool { return true })
	// Confirmation asked on top of the first wait
	h.d.Wait().WaitBackContinue("Sure?", func() bool { return true }, nil)
	if f, ok := h.d.Navigator().Forward(); !ok || f.Page != PageWaitBack {
		t.Fatalf("Expected the wait page as forward mark, got %v %v", f.Page, ok)
	}

	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)
	h.expectPage(PageLoadUnload)
	if f, ok := h.d.Navigator().Forward(); ok {
		t.Errorf("Temporary forward mark should be dropped, got %v", f.Page)
	}

	// Save now falls back one page instead of hunting for a wait page
	h.d.HandleKey(protocol.ActionLoadUnload, protocol.KeySave)
	h.expectPage(PageMain)
}

func TestWaitReplacesCallbacks(t *testing.T) {
	h := newHarness(t)
	h.open()

	first, second := 0, 0
	h.d.Wait().WaitBack("one", func() bool { first++; return true })
	h.d.Wait().WaitBack("two", func() bool { second++; return true })

	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)
	if first != 0 || second != 1 {
		t.Errorf("first=%d second=%d", first, second)
	}
	h.expectPage(PageMain)
}

func TestWaitAbortClearsScheduler(t *testing.T) {
	h := newHarness(t)
	h.open()

	ran := false
	h.d.Wait().WaitBack("Working", func() bool { return true })
	h.d.Scheduler().Set(100*time.Millisecond, func() { ran = true }, core.OneShot)

	h.d.Navigator().Reset()
	h.expectPage(PageMain)
	if h.d.Scheduler().Armed() {
		t.Error("Abort should clear the pending task")
	}

	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)
	h.clock.Advance(time.Second)
	h.d.Idle()
	if ran {
		t.Error("Cleared task ran")
	}
}
