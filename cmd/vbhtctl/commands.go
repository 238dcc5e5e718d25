package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/kvengine/vbht/lib/vbht"
)

func keyFor(s string) vbht.Key { return vbht.Key{Bytes: []byte(s)} }

var setCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Inserts or updates a key (against a freshly created table)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		k := keyFor(args[0])
		bl := table.LockBucket(k)
		defer bl.Unlock()
		if _, err := table.Set(bl, vbht.Item{Key: k, Value: []byte(args[1])}); err != nil {
			return err
		}
		fmt.Println("set successfully")
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Reads the value for a key (against a freshly created table — always a miss unless run after set in the same demo)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k := keyFor(args[0])
		bl := table.LockBucket(k)
		sv := table.FindForRead(bl, k, false)
		bl.Unlock()
		if sv == nil {
			fmt.Printf("key=%s, found=false\n", args[0])
			return nil
		}
		fmt.Printf("key=%s, found=true, value=%s\n", args[0], sv.ValueBytes())
		return nil
	},
}

var delCmd = &cobra.Command{
	Use:   "del [key]",
	Short: "Deletes a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k := keyFor(args[0])
		bl := table.LockBucket(k)
		sv := table.FindOnlyCommitted(bl, k)
		if sv == nil {
			bl.Unlock()
			return fmt.Errorf("key %q not found", args[0])
		}
		err := table.UnlockedSoftDelete(bl, sv, false, vbht.DeleteSourceExplicit)
		bl.Unlock()
		if err != nil {
			return err
		}
		fmt.Println("delete successfully")
		return nil
	},
}

var evictCmd = &cobra.Command{
	Use:   "evict [key] [policy]",
	Short: "Ejects a key's value (policy: value|full)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := vbht.EvictionPolicyValue
		if args[1] == "full" {
			policy = vbht.EvictionPolicyFull
		}
		k := keyFor(args[0])
		bl := table.LockBucket(k)
		sv := table.FindOnlyCommitted(bl, k)
		if sv == nil {
			bl.Unlock()
			return fmt.Errorf("key %q not found", args[0])
		}
		ok := table.Eject(bl, sv, policy)
		bl.Unlock()
		fmt.Printf("evicted=%v\n", ok)
		return nil
	},
}

var resizeCmd = &cobra.Command{
	Use:   "resize [new-size]",
	Short: "Resizes the bucket vector; omit new-size to auto-size from num_items",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		before := table.Size()
		if len(args) == 1 {
			var newSize int
			if _, err := fmt.Sscanf(args[0], "%d", &newSize); err != nil {
				return fmt.Errorf("invalid size %q: %w", args[0], err)
			}
			table.ResizeTo(newSize)
		} else {
			table.Resize()
		}
		fmt.Printf("size: %d -> %d\n", before, table.Size())
		return nil
	},
}

var visitCmd = &cobra.Command{
	Use:   "visit",
	Short: "Runs a one-shot depth-diagnostic visit over the table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var totalDepth int
		var maxDepth int
		table.VisitAllDepth(printingDepthVisitor{total: &totalDepth, max: &maxDepth})
		fmt.Printf("buckets=%d totalEntries=%d maxChainDepth=%d\n", table.Size(), totalDepth, maxDepth)
		return nil
	},
}

type printingDepthVisitor struct {
	total *int
	max   *int
}

func (v printingDepthVisitor) VisitDepth(bucketIdx, depth int, bytes int64) {
	*v.total += depth
	if depth > *v.max {
		*v.max = depth
	}
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the current stats snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := table.Stats()
		fmt.Printf("numItems=%d numDeleted=%d numNonResident=%d numTemp=%d\n",
			snap.NumItems, snap.NumDeletedItems, snap.NumNonResidentItems, snap.NumTempItems)
		fmt.Printf("cacheSize=%d memSize=%d uncompressedMem=%d metadataMemory=%d\n",
			snap.CacheSize, snap.MemSize, snap.UncompressedMem, snap.MetadataMemory)
		fmt.Printf("numResizes=%d numEjects=%d numValueEjects=%d numFailedEjects=%d\n",
			snap.NumResizes, snap.NumEjects, snap.NumValueEjects, snap.NumFailedEjects)
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Seeds the table and walks through the scenarios from this engine's testable-properties list",
	Args:  cobra.NoArgs,
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	fmt.Println("1. grow-then-shrink: inserting 5000 keys")
	for i := 0; i < 5000; i++ {
		k := keyFor(fmt.Sprintf("k-%d", i))
		bl := table.LockBucket(k)
		_, _ = table.Set(bl, vbht.Item{Key: k, Value: []byte("v")})
		bl.Unlock()
	}
	table.Resize()
	fmt.Printf("   size after growth resize: %d\n", table.Size())

	for i := 0; i < 4990; i++ {
		k := keyFor(fmt.Sprintf("k-%d", i))
		bl := table.LockBucket(k)
		if sv := table.FindOnlyCommitted(bl, k); sv != nil {
			table.UnlockedDel(bl, k, sv)
		}
		bl.Unlock()
	}
	table.Resize()
	fmt.Printf("   size after shrink resize: %d, numItems=%d\n", table.Size(), table.Stats().NumItems)

	fmt.Println("2. prepare/commit coexistence")
	k := keyFor("demo-a")
	bl := table.LockBucket(k)
	_, _ = table.Set(bl, vbht.Item{Key: k, Value: []byte("1"), Cas: 10})
	bl.Unlock()

	bl = table.LockBucket(k)
	_, _ = table.Set(bl, vbht.Item{Key: k, Value: []byte("2"), Cas: 11, SyncWrite: true})
	committed := table.FindForRead(bl, k, false)
	pending := table.FindForWrite(bl, k, false)
	fmt.Printf("   committed value=%s, pending state=%s\n", committed.ValueBytes(), pending.CommittedState)
	bl.Unlock()

	fmt.Println("4. value-only eviction round-trip")
	bl = table.LockBucket(k)
	sv := table.FindOnlyCommitted(bl, k)
	table.Eject(bl, sv, vbht.EvictionPolicyValue)
	bl.Unlock()
	fmt.Printf("   numNonResidentItems=%d\n", table.Stats().NumNonResidentItems)

	fmt.Println("11. random sampling")
	if item, ok := table.GetRandomKey(rand.New(rand.NewSource(1))); ok {
		fmt.Printf("   sampled key=%s\n", item.Key.Bytes)
	}

	return nil
}
