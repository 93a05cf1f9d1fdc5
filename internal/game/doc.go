// Package game implements the hold'em betting state machine.
//
// A Hand is created with NewHand from a pre-shuffled deck and a set of seated
// players. NewHand posts antes and blinds, deals hole cards in ascending seat
// order and hands the turn to the first player to act. Each call to Act applies
// one player decision; when a betting round closes the next street is dealt and
// action resets to the first live seat left of the dealer.
//
// # Runouts
//
// When at most one player can still act, the remaining streets are dealt without
// soliciting action. The hand reports RunoutPending and the caller advances each
// street with AdvanceRunout, which lets a server pace the reveal:
//
//	for h.RunoutPending() {
//	    time.Sleep(delay)
//	    h.AdvanceRunout()
//	}
//
// # Offline play
//
// RunHand drives a hand to completion with a decision function and no concurrency,
// which is how the offline variant and most tests play hands.
//
// Hand is not safe for concurrent use; the table session serializes access.
package game
