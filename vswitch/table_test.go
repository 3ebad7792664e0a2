package vswitch

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

func testMac(i, j int) libol.Mac {
	return libol.Mac{0x02, 0x00, 0x00, 0x00, byte(i), byte(j)}
}

func testEndpoint(i, j int) libol.Endpoint {
	return libol.NewEndpoint("127.0.0.1", uint16(10000+i*256+j))
}

func TestMacTable_AddLookup(t *testing.T) {
	table := NewMacTable()
	mac := testMac(0, 1)
	ep := testEndpoint(0, 1)

	assert.True(t, table.IsEmpty(), "empty")
	assert.True(t, table.Add(mac, ep), "new")
	got, ok := table.Lookup(mac)
	assert.True(t, ok, "found")
	assert.Equal(t, ep, got, "endpoint")
	assert.True(t, table.Has(mac), "has")
	assert.Equal(t, 1, table.Len(), "size")

	_, ok = table.Lookup(testMac(0, 2))
	assert.False(t, ok, "missing")
}

func TestMacTable_AddAgain(t *testing.T) {
	table := NewMacTable()
	mac := testMac(0, 1)
	ep := testEndpoint(0, 1)

	assert.True(t, table.Add(mac, ep), "first")
	assert.False(t, table.Add(mac, ep), "same")
	assert.Equal(t, 1, table.Len(), "size")

	// Replacing the endpoint is not a new key, last writer wins.
	moved := testEndpoint(0, 2)
	assert.False(t, table.Add(mac, moved), "moved")
	got, _ := table.Lookup(mac)
	assert.Equal(t, moved, got, "relearned")
}

func TestMacTable_AddInvalid(t *testing.T) {
	table := NewMacTable()
	assert.False(t, table.Add(testMac(0, 1), libol.Endpoint{}), "invalid")
	assert.True(t, table.IsEmpty(), "empty")
}

func TestMacTable_Del(t *testing.T) {
	table := NewMacTable()
	mac := testMac(0, 1)
	table.Add(mac, testEndpoint(0, 1))
	assert.True(t, table.Del(mac), "deleted")
	assert.False(t, table.Del(mac), "again")
	assert.True(t, table.IsEmpty(), "empty")
}

func TestMacTable_EndpointsExcept(t *testing.T) {
	table := NewMacTable()
	count := 8
	for j := 0; j < count; j++ {
		table.Add(testMac(0, j), testEndpoint(0, j))
	}
	skip := testMac(0, 3)
	eps := table.EndpointsExcept(skip)
	assert.Equal(t, count-1, len(eps), "length")
	seen := make(map[string]int, count)
	for _, ep := range eps {
		seen[ep.String()]++
	}
	for j := 0; j < count; j++ {
		ep := testEndpoint(0, j)
		if j == 3 {
			assert.Equal(t, 0, seen[ep.String()], "excluded")
		} else {
			assert.Equal(t, 1, seen[ep.String()], fmt.Sprintf("once %d", j))
		}
	}
	// A key not in the table excludes nothing.
	assert.Equal(t, count, len(table.EndpointsExcept(testMac(9, 9))), "absent")
}

func TestMacTable_Snapshot(t *testing.T) {
	table := NewMacTable()
	table.Add(testMac(0, 1), testEndpoint(0, 1))
	snap := table.Snapshot()
	snap[testMac(0, 2)] = testEndpoint(0, 2)
	assert.Equal(t, 1, table.Len(), "copy")

	table.Clear()
	assert.True(t, table.IsEmpty(), "cleared")
}

func TestMacTable_Concurrency(t *testing.T) {
	table := NewMacTable()
	writers := 8
	keys := 128
	readers := 4

	done := make(chan struct{})
	var rg sync.WaitGroup
	for r := 0; r < readers; r++ {
		rg.Add(1)
		go func() {
			defer rg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, ep := range table.Endpoints() {
					if !ep.Valid() {
						t.Error("torn endpoint")
						return
					}
				}
				table.EndpointsExcept(testMac(0, 0))
				table.Len()
			}
		}()
	}
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < keys; j++ {
				table.Add(testMac(w, j), testEndpoint(w, j))
			}
		}(w)
	}
	wg.Wait()
	close(done)
	rg.Wait()
	assert.Equal(t, writers*keys, table.Len(), "final size")
}
