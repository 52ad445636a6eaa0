package player

import (
	"math"
	"testing"

	"github.com/siohaza/corridor/internal/protocol"

	"pgregory.net/rapid"
)

func TestOfferKeepsHighestSequence(t *testing.T) {
	p := New(1, "alice")

	if !p.Offer(protocol.PacketInput{Seq: 5, Flags: protocol.MoveForward}) {
		t.Fatal("first input rejected")
	}
	if p.Offer(protocol.PacketInput{Seq: 3, Flags: protocol.MoveBack}) {
		t.Fatal("older input accepted while seq 5 is pending")
	}
	if p.Offer(protocol.PacketInput{Seq: 5, Flags: protocol.MoveBack}) {
		t.Fatal("duplicate input accepted")
	}

	in, ok := p.TakePending()
	if !ok || in.Seq != 5 || in.Flags != protocol.MoveForward {
		t.Fatalf("TakePending() = %+v, %v", in, ok)
	}
	if p.LastSeq != 5 || !p.HasSeq {
		t.Fatalf("LastSeq = %d, HasSeq = %v", p.LastSeq, p.HasSeq)
	}

	if p.Offer(protocol.PacketInput{Seq: 4}) {
		t.Fatal("input older than last applied accepted")
	}
	if _, ok := p.TakePending(); ok {
		t.Fatal("pending input appeared after rejected offer")
	}
}

func TestOfferAcrossWrap(t *testing.T) {
	p := New(1, "alice")
	p.Offer(protocol.PacketInput{Seq: math.MaxUint32 - 1})
	p.TakePending()

	if !p.Offer(protocol.PacketInput{Seq: 2}) {
		t.Fatal("wrapped sequence 2 should be newer than MaxUint32-1")
	}
}

func TestStaleOfferNeverMutates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		last := rapid.Uint32().Draw(t, "last")
		back := rapid.Uint32Range(0, math.MaxInt32).Draw(t, "back")

		p := New(7, "bob")
		p.Offer(protocol.PacketInput{Seq: last, Flags: protocol.MoveForward})
		p.TakePending()
		p.Held = protocol.MoveForward
		before := *p

		if p.Offer(protocol.PacketInput{Seq: last - back, Flags: protocol.MoveJump, MouseDX: 50}) {
			t.Fatalf("seq %d accepted after %d", last-back, last)
		}
		if *p != before {
			t.Fatalf("stale offer mutated state: %+v -> %+v", before, *p)
		}
	})
}

func TestManagerOrderAndNames(t *testing.T) {
	m := NewManager()

	ids := []uint32{m.NextID(), m.NextID(), m.NextID()}
	m.Add(New(ids[2], "Charlie"))
	m.Add(New(ids[0], "alice"))
	m.Add(New(ids[1], "Ärger"))

	var order []uint32
	m.ForEach(func(p *PlayerState) { order = append(order, p.ID) })
	for i := range ids {
		if order[i] != ids[i] {
			t.Fatalf("ForEach order = %v, want %v", order, ids)
		}
	}

	if !m.NameInUse("ALICE") {
		t.Error("case-insensitive name match failed")
	}
	if !m.NameInUse("äRGER") {
		t.Error("case folding should cover non-ASCII letters")
	}
	if m.NameInUse("dave") {
		t.Error("unknown name reported in use")
	}

	if _, ok := m.Remove(ids[0]); !ok {
		t.Fatal("Remove() failed")
	}
	if m.NameInUse("alice") {
		t.Error("removed player's name still in use")
	}
	if m.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.Count())
	}
	if next := m.NextID(); next <= ids[2] {
		t.Fatalf("NextID() = %d reused an id", next)
	}
}

func TestShotLatchesAcrossNewerInput(t *testing.T) {
	p := New(1, "alice")
	p.Offer(protocol.PacketInput{Seq: 1, Flags: protocol.MoveShoot})
	p.Offer(protocol.PacketInput{Seq: 2, Flags: protocol.MoveForward})

	in, _ := p.TakePending()
	if in.Seq != 2 {
		t.Fatalf("pending seq = %d, want 2", in.Seq)
	}
	if !p.ShotPending {
		t.Fatal("shot dropped by a newer input without the shoot flag")
	}

	p.ShotPending = false
	p.Offer(protocol.PacketInput{Seq: 1, Flags: protocol.MoveShoot})
	if p.ShotPending {
		t.Fatal("stale input latched a shot")
	}
}
