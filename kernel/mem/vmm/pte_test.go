package vmm

import (
	"testing"

	"helios/kernel/mem/pmm"
)

func TestPageTableEntryFlags(t *testing.T) {
	var pte pageTableEntry

	pte.SetFlags(FlagPresent | FlagRW)

	if !pte.HasFlags(FlagPresent | FlagRW) {
		t.Error("expected pte to have both FlagPresent and FlagRW set")
	}

	if pte.HasFlags(FlagPresent | FlagNoExecute) {
		t.Error("expected HasFlags to report false when any flag in the list is not set")
	}

	if !pte.HasAnyFlag(FlagRW | FlagNoExecute) {
		t.Error("expected HasAnyFlag to report true when at least one flag in the list is set")
	}

	if pte.HasAnyFlag(FlagHugePage | FlagNoExecute) {
		t.Error("expected HasAnyFlag to report false when no flag in the list is set")
	}

	pte.ClearFlags(FlagRW)

	if pte.HasAnyFlag(FlagRW) || !pte.HasFlags(FlagPresent) {
		t.Error("expected ClearFlags to only unset the specified flags")
	}
}

func TestPageTableEntryFrame(t *testing.T) {
	var pte pageTableEntry

	pte.SetFlags(FlagPresent | FlagNoExecute)
	pte.SetFrame(pmm.Frame(0xbadf00d))

	if exp, got := pmm.Frame(0xbadf00d), pte.Frame(); got != exp {
		t.Errorf("expected pte frame to be %x; got %x", exp, got)
	}

	if !pte.HasFlags(FlagPresent | FlagNoExecute) {
		t.Error("expected SetFrame to preserve the entry flags")
	}

	pte.SetFrame(pmm.Frame(0x42))

	if exp, got := pmm.Frame(0x42), pte.Frame(); got != exp {
		t.Errorf("expected pte frame after update to be %x; got %x", exp, got)
	}
}
