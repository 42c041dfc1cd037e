package transfer

import (
	"fmt"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/chmdznr/savannah/pkg/models"
	"github.com/chmdznr/savannah/pkg/utils"
)

// workerProgress renders a progress bar for a single worker. A worker created
// without a bar only counts.
type workerProgress struct {
	id             int
	processedFiles int64
	processedSize  int64
	bar            *pb.ProgressBar
}

func newWorkerProgress(id int, show bool) *workerProgress {
	wp := &workerProgress{id: id}
	if !show {
		return wp
	}
	bar := pb.New64(0)
	bar.Set(pb.Bytes, true)
	bar.SetTemplate(`Worker {{string . "id"}} {{counters . }} {{speed . }}`)
	bar.Set("id", fmt.Sprintf("%d", id))
	bar.Start()
	wp.bar = bar
	return wp
}

func (wp *workerProgress) update(size int64) {
	wp.processedFiles++
	if size > 0 {
		wp.processedSize += size
		if wp.bar != nil {
			wp.bar.Add64(size)
		}
	}
}

func (wp *workerProgress) finish() {
	if wp.bar != nil {
		wp.bar.Finish()
	}
}

// sessionProgress aggregates the outcome of a transfer session.
type sessionProgress struct {
	totalFiles int64
	totalSize  int64
	doneFiles  int64
	doneSize   int64
	startTime  time.Time
	now        func() time.Time
	sync.Mutex
}

func newSessionProgress(records []*models.TransferRecord, now func() time.Time) *sessionProgress {
	p := &sessionProgress{totalFiles: int64(len(records)), startTime: now(), now: now}
	for _, rec := range records {
		if size := rec.FileSize(); size > 0 {
			p.totalSize += size
		}
	}
	return p
}

func (p *sessionProgress) done(rec *models.TransferRecord) {
	p.Lock()
	defer p.Unlock()
	p.doneFiles++
	if size := rec.FileSize(); size > 0 && rec.State() == models.StateComplete {
		p.doneSize += size
	}
}

// String summarises the session.
func (p *sessionProgress) String() string {
	p.Lock()
	defer p.Unlock()

	elapsed := p.now().Sub(p.startTime)
	var avg float64
	if elapsed.Seconds() > 0 {
		avg = float64(p.doneSize) / elapsed.Seconds()
	}
	return fmt.Sprintf("%d/%d files - %s/%s at %s | Time Elapsed: %s",
		p.doneFiles,
		p.totalFiles,
		utils.FormatSize(p.doneSize),
		utils.FormatSize(p.totalSize),
		utils.FormatSpeed(avg),
		utils.FormatDuration(elapsed),
	)
}
