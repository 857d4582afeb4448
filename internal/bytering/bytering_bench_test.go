package bytering_test

import (
	"fmt"
	"testing"

	"github.com/randomizedcoder/cirqueue/internal/bytering"
)

var sinkN int
var sinkErr error

// BenchmarkRing_PushPop measures the uncontended round trip for a range of
// payload sizes.
func BenchmarkRing_PushPop(b *testing.B) {
	for _, size := range []int{0, 16, 128, 1024} {
		b.Run(fmt.Sprintf("payload=%d", size), func(b *testing.B) {
			r, err := bytering.New(1 << 16)
			if err != nil {
				b.Fatal(err)
			}
			p := make([]byte, size)
			dst := make([]byte, size)

			b.SetBytes(int64(size))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sinkErr = r.Push(p)
				sinkN, sinkErr = r.PopInto(dst)
			}
		})
	}
}

// BenchmarkRing_Pop_Alloc includes the allocation Pop makes per record.
func BenchmarkRing_Pop_Alloc(b *testing.B) {
	r, err := bytering.New(1 << 16)
	if err != nil {
		b.Fatal(err)
	}
	p := make([]byte, 128)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Push(p)
		out, _ := r.Pop()
		sinkN = len(out)
	}
}

// BenchmarkRing_Push_Parallel has every goroutine push and immediately pop,
// exercising the reserve and publish retries under contention.
func BenchmarkRing_Push_Parallel(b *testing.B) {
	r, err := bytering.New(1 << 20)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		p := make([]byte, 64)
		dst := make([]byte, 64)
		for pb.Next() {
			if r.Push(p) == nil {
				_, _ = r.PopInto(dst)
			}
		}
	})
}
