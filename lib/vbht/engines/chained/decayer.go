package chained

import (
	"context"

	"github.com/kvengine/vbht/lib/vbht/util"
	"github.com/kvengine/vbht/lib/vbht/vbhtlog"
)

// FreqDecayer is C9: a background task woken by the frequency-counter
// saturation callback. Rather than ageing a single key, it treats
// saturation as a signal that the whole table's working set has grown
// "hot" and halves every entry's frequency counter in one sweep.
type FreqDecayer struct {
	ht     *HashTable
	wakes  *util.WakeQueue
	log    *vbhtlog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFreqDecayer wires ht's saturation callback to wakes and returns a
// decayer ready to Start.
func NewFreqDecayer(ht *HashTable, wakes *util.WakeQueue, log *vbhtlog.Logger) *FreqDecayer {
	d := &FreqDecayer{ht: ht, wakes: wakes, log: log, done: make(chan struct{})}
	ht.onFrequencySaturated = func(keyHash uint64) {
		wakes.Push(keyHash)
	}
	return d
}

// Start launches the decayer's consumer goroutine. Each wake signal
// (coalesced — a burst of saturations during one sweep only triggers
// one additional sweep) runs a full halving pass over the table.
func (d *FreqDecayer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-d.wakes.Recv():
				if !ok {
					return
				}
				d.drainPendingWakes()
				d.halveAllCounters(ctx)
			}
		}
	}()
}

// drainPendingWakes discards any additional wake signals already
// queued behind the one that triggered this sweep, so a burst of
// saturations collapses into a single pass.
func (d *FreqDecayer) drainPendingWakes() {
	for {
		select {
		case _, ok := <-d.wakes.Recv():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Stop cancels the consumer goroutine and waits for it to exit.
func (d *FreqDecayer) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	<-d.done
}

// halveAllCounters walks the table with a ContentVisitor that never
// pauses, halving each StoredValue's frequency counter in place.
func (d *FreqDecayer) halveAllCounters(ctx context.Context) {
	visitor := &halvingVisitor{}
	pos := Position{}
	for {
		pos = d.ht.PauseResumeVisit(visitor, pos)
		if pos.IsEnd(d.ht.Size(), d.ht.NumLocks()) {
			break
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
	if d.log != nil {
		d.log.Debugf("freq decayer swept %d entries, halving counters", visitor.touched)
	}
}

type halvingVisitor struct {
	touched int
}

func (v *halvingVisitor) SetUpHashBucketVisit()    {}
func (v *halvingVisitor) TearDownHashBucketVisit() {}

func (v *halvingVisitor) Visit(bucket int, sv *StoredValue) VisitAction {
	sv.FreqCounter /= 2
	v.touched++
	return VisitContinue
}
