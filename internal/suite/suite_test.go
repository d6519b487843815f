package suite_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/roach88/cachecheck/internal/golden"
	"github.com/roach88/cachecheck/internal/runner"
	"github.com/roach88/cachecheck/internal/scenario"
	"github.com/roach88/cachecheck/internal/suite"
)

const icacheOnly = `WordBits 0, RowBits 3, TagBits 27

I-Cache statistics:
	Number of reads performed: 	14
	Words read from memory: 	9
`

const withDCache = `WordBits 0, RowBits 3, TagBits 27
Data cache level 1:
	8 blocks

I-Cache statistics:
	Number of reads performed: 	14

L1 D-Cache statistics:
	Number of reads performed: 	6
	Number of writes performed: 	4
`

type sliceRecorder struct {
	outcomes []suite.Outcome
	err      error
}

func (r *sliceRecorder) Record(_ context.Context, o suite.Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return r.err
}

var _ = Describe("Suite", func() {
	var (
		mockCtrl *gomock.Controller
		sim      *MockCommandRunner
		store    *golden.Store
		table    scenario.Table
		progress *bytes.Buffer
		opts     suite.Options
	)

	argsOf := func(index int) []string {
		sc, ok := table.Get(index)
		Expect(ok).To(BeTrue())
		return sc.Args("traces")
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sim = NewMockCommandRunner(mockCtrl)

		dir, err := os.MkdirTemp("", "golden")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		store = golden.New(dir)

		table = scenario.Table{
			{Index: 1, Name: "direct", ICache: "8:1:1:x", Trace: "medium.txt"},
			{Index: 2, Name: "random", ICache: "8:4:8:R", Trace: "medium.txt",
				Skip: "random replacement output is non-deterministic"},
			{Index: 3, Name: "dcache", ICache: "8:1:1:x",
				DCache: []string{"1:8:4:8:L:B:A"}, Trace: "medium.txt"},
		}
		Expect(store.Write(1, []byte(icacheOnly))).To(Succeed())
		Expect(store.Write(3, []byte(withDCache))).To(Succeed())

		progress = &bytes.Buffer{}
		opts = suite.Options{
			Table:    table,
			Golden:   store,
			Runner:   sim,
			TraceDir: "traces",
			Progress: progress,
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pass every non-skipped scenario", func() {
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(icacheOnly), nil)
		sim.EXPECT().Run(gomock.Any(), argsOf(3)).Return([]byte(withDCache), nil)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(rep.OK()).To(BeTrue())
		Expect(rep.Passed()).To(Equal(2))
		Expect(rep.Skipped()).To(Equal(1))
		Expect(rep.Outcomes).To(HaveLen(3))
		Expect(rep.Outcomes[1].Status).To(Equal(suite.StatusSkip))
		Expect(rep.Outcomes[1].Reason).To(ContainSubstring("random"))

		out := progress.String()
		Expect(out).To(ContainSubstring("*****TEST***** 1\n"))
		Expect(out).To(ContainSubstring("*****TEST***** 2\nSkipping test 2"))
		Expect(out).To(ContainSubstring("*****TEST***** 3\n"))
		Expect(out).NotTo(ContainSubstring("INCORRECT"))
	})

	It("should realign on section headers", func() {
		noisy := strings.Replace(withDCache, "L1 D-Cache statistics:",
			"D_READ at 0000a0b4\nD_WRITE at 0000a0b8\nL1 D-Cache statistics:", 1)
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(icacheOnly), nil)
		sim.EXPECT().Run(gomock.Any(), argsOf(3)).Return([]byte(noisy), nil)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Passed()).To(Equal(2))
	})

	It("should stop at the first mismatch", func() {
		wrong := strings.Replace(icacheOnly, "\t14", "\t15", 1)
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(wrong), nil)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(errors.Is(err, suite.ErrMismatch)).To(BeTrue())
		var mismatch *suite.MismatchError
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		Expect(mismatch.Outcome.Scenario).To(Equal(1))
		Expect(mismatch.Outcome.GoldenLine).To(Equal(3))
		Expect(mismatch.Outcome.Expected).To(Equal([]string{"Number", "of", "reads", "performed:", "14"}))
		Expect(mismatch.Outcome.Actual).To(Equal([]string{"Number", "of", "reads", "performed:", "15"}))

		Expect(rep.Halted).To(BeTrue())
		Expect(rep.OK()).To(BeFalse())
		Expect(rep.Outcomes).To(HaveLen(1))
		Expect(progress.String()).To(ContainSubstring("INCORRECT on test 1"))
		Expect(progress.String()).NotTo(ContainSubstring("*****TEST***** 2"))
	})

	It("should not mark the run halted when the last scenario fails", func() {
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(icacheOnly), nil)
		sim.EXPECT().Run(gomock.Any(), argsOf(3)).Return([]byte(icacheOnly), nil)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(errors.Is(err, suite.ErrMismatch)).To(BeTrue())
		Expect(rep.Halted).To(BeFalse())
		Expect(rep.Failed()).To(Equal(1))
	})

	It("should report truncated output", func() {
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte("WordBits 0, RowBits 3, TagBits 27\nI-Cache statistics:\n"), nil)

		_, err := suite.New(opts).Run(context.Background())

		var mismatch *suite.MismatchError
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		Expect(mismatch.Outcome.Missing).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("output ended"))
		Expect(progress.String()).To(ContainSubstring("<end of output>"))
	})

	It("should collect every failure when keeping going", func() {
		opts.KeepGoing = true
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte("garbage\n"), nil)
		sim.EXPECT().Run(gomock.Any(), argsOf(3)).Return([]byte("garbage\n"), nil)

		rep, err := suite.New(opts).Run(context.Background())

		var mismatch *suite.MismatchError
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		Expect(mismatch.Failures).To(Equal(2))
		Expect(mismatch.Outcome.Scenario).To(Equal(1))
		Expect(err.Error()).To(ContainSubstring("and 1 more"))
		Expect(rep.Failed()).To(Equal(2))
		Expect(rep.Skipped()).To(Equal(1))
		Expect(rep.Halted).To(BeFalse())
	})

	It("should abort when a golden file is missing", func() {
		Expect(os.Remove(store.Path(1))).To(Succeed())

		rep, err := suite.New(opts).Run(context.Background())

		Expect(errors.Is(err, golden.ErrMissing)).To(BeTrue())
		Expect(err.Error()).To(HavePrefix("scenario 1:"))
		Expect(rep.Halted).To(BeTrue())
		Expect(rep.Outcomes).To(BeEmpty())
	})

	It("should not require golden files for skipped scenarios", func() {
		Expect(store.Exists(2)).To(BeFalse())
		opts.Table = table[1:2]

		rep, err := suite.New(opts).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Skipped()).To(Equal(1))
	})

	It("should abort when the simulator fails", func() {
		launchErr := &runner.LaunchError{Argv: argsOf(1), ExitCode: 1, Err: fmt.Errorf("exit status 1")}
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return(nil, launchErr)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(errors.Is(err, runner.ErrLaunch)).To(BeTrue())
		Expect(rep.Halted).To(BeTrue())
	})

	It("should skip scenarios listed in the options", func() {
		opts.Skip = map[int]string{3: ""}
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(icacheOnly), nil)

		s := suite.New(opts)
		reason, ok := s.SkipReason(3)
		Expect(ok).To(BeTrue())
		Expect(reason).To(Equal("non-deterministic output"))

		rep, err := s.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Skipped()).To(Equal(2))
	})

	It("should regenerate golden files in update mode", func() {
		opts.Update = true
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte("new one\n"), nil)
		sim.EXPECT().Run(gomock.Any(), argsOf(3)).Return([]byte("new three\n"), nil)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Updated()).To(Equal(2))
		Expect(store.Exists(2)).To(BeFalse())

		doc, err := store.Load(3)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.String()).To(Equal("new three\n"))
		Expect(progress.String()).To(ContainSubstring("Updated " + store.Path(1)))
	})

	It("should repeat each scenario and catch non-deterministic output", func() {
		opts.Repeat = 3
		opts.Table = table[:1]
		gomock.InOrder(
			sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(icacheOnly), nil),
			sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(strings.Replace(icacheOnly, "\t9", "\t8", 1)), nil),
		)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(errors.Is(err, suite.ErrMismatch)).To(BeTrue())
		Expect(rep.Outcomes[0].Run).To(Equal(2))
	})

	It("should repeat a deterministic scenario the requested number of times", func() {
		opts.Repeat = 3
		opts.Table = table[:1]
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(icacheOnly), nil).Times(3)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Passed()).To(Equal(1))
	})

	It("should hand every outcome to the recorder", func() {
		rec := &sliceRecorder{}
		opts.Recorder = rec
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(icacheOnly), nil)
		sim.EXPECT().Run(gomock.Any(), argsOf(3)).Return([]byte(withDCache), nil)

		_, err := suite.New(opts).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(rec.outcomes).To(HaveLen(3))
		Expect(rec.outcomes[0].Status).To(Equal(suite.StatusPass))
		Expect(rec.outcomes[1].Status).To(Equal(suite.StatusSkip))
	})

	It("should halt when the recorder fails", func() {
		opts.Recorder = &sliceRecorder{err: errors.New("disk full")}
		sim.EXPECT().Run(gomock.Any(), argsOf(1)).Return([]byte(icacheOnly), nil)

		rep, err := suite.New(opts).Run(context.Background())

		Expect(err).To(MatchError(ContainSubstring("disk full")))
		Expect(rep.Halted).To(BeTrue())
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rep, err := suite.New(opts).Run(ctx)

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(rep.Halted).To(BeTrue())
	})

	It("should reject a suite without a runner", func() {
		opts.Runner = nil
		_, err := suite.New(opts).Run(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("should produce the same outcome on every run", func() {
		sim.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, args []string) ([]byte, error) {
				if strings.Contains(strings.Join(args, " "), "-D") {
					return []byte(withDCache), nil
				}
				return []byte(icacheOnly), nil
			}).Times(4)

		first, err := suite.New(opts).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		second, err := suite.New(opts).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})
})
