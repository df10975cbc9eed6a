package cmd

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rohmanhakim/site-spider/internal/spider"
)

// PrintingListener writes one line per fetched or skipped URL.
type PrintingListener struct {
	spider.BaseListener

	mu      sync.Mutex
	out     io.Writer
	read    atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
	result  string
}

func NewPrintingListener(out io.Writer) *PrintingListener {
	return &PrintingListener{out: out}
}

func (p *PrintingListener) FoundURI(found spider.FoundResource) {
	if !found.IsSkipped() {
		return
	}
	p.skipped.Add(1)
	p.printf("SKIP  %-16s %s %s\n", found.Status, found.Method, found.URL)
}

func (p *PrintingListener) ReadURI(read spider.ReadResource) {
	p.read.Add(1)
	if read.Err != nil {
		p.failed.Add(1)
		p.printf("ERROR %s %s: %v\n", read.Method, read.URL, read.Err)
		return
	}
	p.printf("%-5d %s %s\n", read.StatusCode, read.Method, read.URL)
}

func (p *PrintingListener) SpiderComplete(successful bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if successful {
		p.result = "completed"
	} else {
		p.result = "stopped"
	}
}

// Summary prints the totals of the crawl.
func (p *PrintingListener) Summary() {
	p.mu.Lock()
	result := p.result
	p.mu.Unlock()
	p.printf("crawl %s: %d fetched, %d failed, %d skipped\n",
		result, p.read.Load(), p.failed.Load(), p.skipped.Load())
}

func (p *PrintingListener) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}
