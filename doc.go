// Package poolarena hands out variable-sized blocks from one fixed byte range
// supplied by the host, with no further memory requests to the runtime.
//
// The allocator package holds the single-threaded core. SafeArena wraps it
// with a mutex for hosts that share one arena between goroutines:
//
//	region, err := host.Map(64 << 20)
//	if err != nil {
//		return err
//	}
//	defer region.Close()
//
//	a, err := poolarena.NewSafeArena(region.Bytes(), allocator.Config{})
//	if err != nil {
//		return err
//	}
//	addr, err := a.Allocate(100)
//	...
//	err = a.Release(addr)
package poolarena
