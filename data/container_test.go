package data

import (
	"sync"
	"testing"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

func init() {
	logging.InitLogger("")
}

func TestNewDataContainer(t *testing.T) {
	dc := NewDataContainer()
	snap := dc.Snapshot()
	if snap == nil {
		t.Fatal("Expected non-nil snapshot")
	}
	if len(snap.Drugs) != 0 || len(snap.Interactions) != 0 {
		t.Error("Expected empty tables")
	}
	if dc.IsUpdating() {
		t.Error("Expected not updating")
	}
	if dc.GetServerStartTime().IsZero() {
		t.Error("Expected server start time to be set")
	}
}

func TestSwapReplacesWholesale(t *testing.T) {
	dc := NewDataContainer()
	first := dc.Snapshot()

	next := refdata.EmptySnapshot()
	next.Drugs["aspirin"] = entities.DrugRecord{GenericName: "aspirin"}
	dc.Swap(next)

	if dc.Snapshot() != next {
		t.Error("Expected new snapshot after swap")
	}
	if len(first.Drugs) != 0 {
		t.Error("Expected previously held snapshot to be untouched")
	}

	dc.Swap(nil)
	if dc.Snapshot() != next {
		t.Error("Expected nil swap to be ignored")
	}
	if !dc.GetLastUpdated().Equal(next.LoadedAt) {
		t.Error("Expected last updated to follow the snapshot")
	}
}

func TestBeginUpdateIsExclusive(t *testing.T) {
	dc := NewDataContainer()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for _i := 0; _i < 20; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if dc.BeginUpdate() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("Expected exactly one update to start, got %d", winners)
	}
	if !dc.IsUpdating() {
		t.Error("Expected updating flag to be set")
	}
	dc.EndUpdate()
	if !dc.BeginUpdate() {
		t.Error("Expected update to be possible after EndUpdate")
	}
}

func TestConcurrentReadsDuringSwap(t *testing.T) {
	dc := NewDataContainer()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := refdata.EmptySnapshot()
			s.Drugs["drug"] = entities.DrugRecord{GenericName: "drug"}
			dc.Swap(s)
		}()
		go func() {
			defer wg.Done()
			if dc.Snapshot() == nil {
				t.Errorf("Reader %d saw nil snapshot", i)
			}
		}()
	}
	wg.Wait()
}
