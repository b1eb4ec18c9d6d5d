package store_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/guhdong/threadsync/api/types"
	. "github.com/guhdong/threadsync/internal/store"
)

var errBoom = errors.New("boom")

type countingSaver struct {
	saves int
	fail  error
}

func (s *countingSaver) Save(*types.Database) error {
	if s.fail != nil {
		return s.fail
	}
	s.saves++
	return nil
}

var _ = Describe("Checkpointer", func() {
	var (
		saver *countingSaver
		cp    *Checkpointer
		now   time.Time
	)

	BeforeEach(func() {
		saver = &countingSaver{}
		cp = NewCheckpointer(saver, &types.Database{}, 10*time.Second)
		now = time.Unix(1_000_000, 0)
		cp.SetClock(func() time.Time { return now })
	})

	It("does not write before the interval elapses", func() {
		now = now.Add(3 * time.Second)
		Expect(cp.Tick()).To(Succeed())
		now = now.Add(3 * time.Second)
		Expect(cp.Tick()).To(Succeed())
		Expect(saver.saves).To(BeZero())
	})

	It("writes once the interval has elapsed", func() {
		now = now.Add(11 * time.Second)
		Expect(cp.Tick()).To(Succeed())
		Expect(saver.saves).To(Equal(1))

		// Interval restarts from the last write.
		now = now.Add(5 * time.Second)
		Expect(cp.Tick()).To(Succeed())
		Expect(saver.saves).To(Equal(1))
		now = now.Add(6 * time.Second)
		Expect(cp.Tick()).To(Succeed())
		Expect(saver.saves).To(Equal(2))
	})

	It("always writes on Flush", func() {
		Expect(cp.Flush()).To(Succeed())
		Expect(cp.Flush()).To(Succeed())
		Expect(saver.saves).To(Equal(2))

		// A flush also restarts the tick interval.
		now = now.Add(5 * time.Second)
		Expect(cp.Tick()).To(Succeed())
		Expect(saver.saves).To(Equal(2))
	})

	It("propagates save failures", func() {
		saver.fail = errBoom
		now = now.Add(11 * time.Second)
		Expect(cp.Tick()).To(MatchError(errBoom))
		Expect(cp.Flush()).To(MatchError(errBoom))
	})
})
