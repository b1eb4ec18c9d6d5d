package stats

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StatType names a counter. The value is the JSON key used for
// serialization.
type StatType string

const (
	UsernameLookups StatType = "username_lookups"
	UsersFetched    StatType = "returned_users"
	TweetsFetched   StatType = "returned_tweets"
	TimelineTweets  StatType = "timeline_tweets"
	Scrapes         StatType = "conversation_scrapes"
	ScrapeRateWaits StatType = "scrape_ratelimit_waits"
	ResourceErrors  StatType = "resource_errors"
)

// Collector accumulates per-run counters, keyed by run id so a shared
// state file accumulated over several invocations can be told apart in
// logs.
type Collector struct {
	sync.Mutex
	StartTimeUnix     int64                        `json:"start_time"`
	LastOperationUnix int64                        `json:"last_operation_time"`
	Stats             map[string]map[StatType]uint `json:"stats"`
}

func NewCollector() *Collector {
	return &Collector{
		StartTimeUnix: time.Now().Unix(),
		Stats:         make(map[string]map[StatType]uint),
	}
}

// Add adds num to one counter.
func (c *Collector) Add(runID string, typ StatType, num uint) {
	c.Lock()
	defer c.Unlock()
	c.LastOperationUnix = time.Now().Unix()
	if _, ok := c.Stats[runID]; !ok {
		c.Stats[runID] = make(map[StatType]uint)
	}
	c.Stats[runID][typ] += num
	logrus.Debugf("Added %d to stat %s", num, typ)
}

// Get returns the current value of one counter.
func (c *Collector) Get(runID string, typ StatType) uint {
	c.Lock()
	defer c.Unlock()
	return c.Stats[runID][typ]
}

// Json returns the counters as a JSON byte array.
func (c *Collector) Json() ([]byte, error) {
	c.Lock()
	defer c.Unlock()
	return json.Marshal(c)
}

// LogSummary writes the counters for one run at Info level.
func (c *Collector) LogSummary(runID string) {
	c.Lock()
	defer c.Unlock()
	fields := logrus.Fields{"run_id": runID}
	for typ, n := range c.Stats[runID] {
		fields[string(typ)] = n
	}
	logrus.WithFields(fields).Info("Run statistics")
}
