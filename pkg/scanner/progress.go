package scanner

import (
	"time"

	"go.uber.org/zap"
)

// Progress reports scan throughput. The chain height is unknown up front,
// so only rates and counts are logged.
type Progress struct {
	StartBlock         uint64
	LastBlockProcessed uint64
	EventsProcessed    uint64
	StartTime          time.Time
	logger             *zap.Logger
}

func NewProgress(startBlock uint64, l *zap.Logger) *Progress {
	return &Progress{
		StartBlock:         startBlock,
		LastBlockProcessed: startBlock,
		StartTime:          time.Now(),
		logger:             l,
	}
}

// BlocksProcessed counts blocks handled since StartBlock.
func (p *Progress) BlocksProcessed() uint64 {
	if p.LastBlockProcessed < p.StartBlock {
		return 0
	}
	return p.LastBlockProcessed - p.StartBlock
}

func (p *Progress) Update(nextBlock uint64, events int) {
	p.LastBlockProcessed = nextBlock
	p.EventsProcessed += uint64(events)
}

func (p *Progress) Print() {
	blocksProcessed := p.BlocksProcessed()
	if blocksProcessed == 0 {
		return
	}
	elapsed := time.Since(p.StartTime)
	avgMs := float64(elapsed.Milliseconds()) / float64(blocksProcessed)

	p.logger.Sugar().Infow("Progress",
		zap.Uint64("blocksProcessed", blocksProcessed),
		zap.Uint64("eventsProcessed", p.EventsProcessed),
		zap.Float64("avgBlockProcessTime (ms)", avgMs),
		zap.Uint64("currentBlock", p.LastBlockProcessed),
	)
}
