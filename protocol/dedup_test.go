package protocol

import "testing"

func TestDupFilterFirstSeenNotDuplicate(t *testing.T) {
	var f DupFilter
	tg := []byte{0x10, 1, 2, 3, 4, 5, 6, 7}
	if f.Check(tg) {
		t.Fatal("first telegram must not be reported as duplicate")
	}
}

func TestDupFilterExactRepeatIsDuplicate(t *testing.T) {
	var f DupFilter
	tg := []byte{0x10, 1, 2, 3, 4, 5, 6, 7}
	f.Check(tg)
	if !f.Check(tg) {
		t.Fatal("identical telegram must be reported as duplicate")
	}
}

func TestDupFilterIgnoresLinkRepeatBit(t *testing.T) {
	var f DupFilter
	tg := []byte{0x10, 1, 2, 3, 4, 5, 6, 7}
	repeated := []byte{0x10 | repeatFlagBit, 1, 2, 3, 4, 5, 6, 7}
	f.Check(tg)
	if !f.Check(repeated) {
		t.Fatal("telegram differing only in the link-layer repeat bit must be a duplicate")
	}
}

func TestDupFilterDifferentBytesNotDuplicate(t *testing.T) {
	var f DupFilter
	tg := []byte{0x10, 1, 2, 3, 4, 5, 6, 7}
	other := []byte{0x10, 1, 2, 3, 4, 5, 6, 8}
	f.Check(tg)
	if f.Check(other) {
		t.Fatal("different telegram must not be reported as duplicate")
	}
	if f.Check(other) == false {
		t.Fatal("repeating the second telegram should now be the duplicate")
	}
}
