package spider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rohmanhakim/site-spider/internal/extractor"
	"github.com/rohmanhakim/site-spider/internal/fetcher"
	"github.com/rohmanhakim/site-spider/internal/frontier"
	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/rohmanhakim/site-spider/internal/robots"
	"github.com/rohmanhakim/site-spider/pkg/failure"
	"github.com/rohmanhakim/site-spider/pkg/urlutil"
)

/*
One task, start to finish:
 1. fetch it (redirects are never followed by the fetcher)
 2. find links: the Location of a redirect, the paths of a robots.txt,
    or the references of an HTML page
 3. resolve each link against the page and submit it to the frontier
 4. mark the task visited, notify listeners

Every failure short of a fatal fetch error is recorded and the crawl goes on.
*/

// crawlDelaySetter is implemented by fetchers that honour robots.txt Crawl-delay.
type crawlDelaySetter interface {
	SetCrawlDelay(host string, delay time.Duration)
}

func (c *Controller) crawlTask(ctx context.Context, run *crawl, task *frontier.CrawlTask) error {
	fetchParam := fetcher.NewFetchParam(task.Method, task.URL, task.Body, task.ContentType)
	result, fetchErr := c.fetcher.Fetch(ctx, task.Depth, fetchParam)
	if fetchErr != nil {
		run.errors.Add(1)
		run.frontier.MarkVisited(task)
		c.listeners.readURI(ReadResource{
			URL:    task.URL,
			Method: task.Method,
			Depth:  task.Depth,
			Err:    fetchErr,
		})
		c.reportProgress(run, task)
		if fetchErr.Severity() == failure.SeverityFatal {
			return fetchErr
		}
		return nil
	}

	admitted := 0
	if task.Depth < c.cfg.MaxDepth() {
		for _, link := range c.discover(task, &result) {
			if c.submit(run, link) {
				admitted++
			}
		}
	}
	run.frontier.MarkVisited(task)
	if admitted > 0 {
		run.pool.wake()
	}

	c.listeners.readURI(ReadResource{
		URL:         task.URL,
		Method:      task.Method,
		Depth:       task.Depth,
		StatusCode:  result.Code(),
		ContentType: result.ContentType(),
	})
	c.reportProgress(run, task)
	return nil
}

// discover returns the tasks for every link found in result.
func (c *Controller) discover(task *frontier.CrawlTask, result *fetcher.FetchResult) []frontier.CrawlTask {
	childDepth := task.Depth + 1

	switch {
	case result.IsRedirect():
		// the target goes through admission like any other link
		target, ok := c.resolve(task, task.URL, result.Location())
		if !ok {
			return nil
		}
		return []frontier.CrawlTask{frontier.NewGetTask(target, childDepth)}

	case robots.IsRobotsURL(task.URL):
		if result.Code() < 200 || result.Code() >= 300 {
			return nil
		}
		return c.discoverRobots(task, result)

	case extractor.IsHTML(result.ContentType(), result.Body()):
		return c.discoverHTML(task, result)
	}
	return nil
}

func (c *Controller) discoverHTML(task *frontier.CrawlTask, result *fetcher.FetchResult) []frontier.CrawlTask {
	extraction, err := c.extractor.Extract(task.URL, result.Body())
	if err != nil {
		return nil
	}

	base := task.URL
	if extraction.Base != "" {
		if resolved, err := urlutil.Resolve(task.URL, extraction.Base); err == nil {
			base = resolved
		}
	}

	var tasks []frontier.CrawlTask
	for _, link := range extraction.Links {
		target, ok := c.resolve(task, base, link.Raw)
		if !ok {
			continue
		}
		tasks = append(tasks, frontier.NewTask(link.Method, target, link.Body, link.ContentType, task.Depth+1))
	}
	return tasks
}

func (c *Controller) discoverRobots(task *frontier.CrawlTask, result *fetcher.FetchResult) []frontier.CrawlTask {
	var host string
	if u, err := url.Parse(task.URL); err == nil {
		host = u.Host
	}
	parsed := robots.ParseRobotsTxt(string(result.Body()), host)

	if setter, ok := c.fetcher.(crawlDelaySetter); ok && host != "" {
		if group := parsed.GetGroupForUserAgent(c.cfg.UserAgent()); group != nil && group.CrawlDelay != nil {
			setter.SetCrawlDelay(host, *group.CrawlDelay)
		}
	}

	var tasks []frontier.CrawlTask
	for _, raw := range robots.Links(parsed) {
		target, ok := c.resolve(task, task.URL, raw)
		if !ok {
			continue
		}
		tasks = append(tasks, frontier.NewGetTask(target, task.Depth+1))
	}
	return tasks
}

// resolve makes ref absolute. A failure drops the link; it is logged and
// reported to listeners as malformed.
func (c *Controller) resolve(task *frontier.CrawlTask, base, ref string) (string, bool) {
	target, err := urlutil.Resolve(base, ref)
	if err == nil {
		return target, true
	}

	c.metadataSink.RecordError(
		time.Now(),
		"spider",
		"Controller.resolve",
		metadata.CauseMalformedURL,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, ref),
			metadata.NewAttr(metadata.AttrLocation, task.URL),
			metadata.NewAttr(metadata.AttrDepth, strconv.Itoa(task.Depth+1)),
		},
	)
	c.listeners.foundURI(FoundResource{
		URL:    ref,
		Method: http.MethodGet,
		Depth:  task.Depth + 1,
		Status: frontier.StatusMalformed,
	})
	return "", false
}

// submit runs admission for task and tells listeners about anything that
// is not a duplicate.
func (c *Controller) submit(run *crawl, task frontier.CrawlTask) bool {
	status := run.frontier.Submit(task)
	if status != frontier.StatusDuplicate {
		c.listeners.foundURI(FoundResource{
			URL:    task.URL,
			Method: task.Method,
			Depth:  task.Depth,
			Status: status,
		})
	}
	return status.Admitted()
}

func (c *Controller) reportProgress(run *crawl, task *frontier.CrawlTask) {
	processed, total := run.frontier.Counters(task.Depth)
	percent := progressPercent(c.cfg.MaxDepth(), task.Depth, processed, total)
	c.listeners.spiderProgress(task.URL, percent, run.frontier.VisitedCount(), run.frontier.Len())
}

// progressPercent estimates crawl completion from the depth being worked on:
// each depth owns an equal slice of 100, filled by the share of its tasks
// processed so far. The share can shrink as same-depth links keep arriving,
// so the estimate is not monotonic.
func progressPercent(maxDepth, depth, processed, total int) int {
	scale := 100.0 / float64(maxDepth+1)
	percent := scale * float64(depth)
	if total > 0 {
		percent += scale * float64(processed) / float64(total)
	}
	return int(percent)
}
