// internal/blockchain/solbc/pool.go
package solbc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// ErrNoActiveNodes возникает, когда в пуле не осталось доступных узлов.
var ErrNoActiveNodes = errors.New("no active RPC nodes available")

// NodeStats метрики одного RPC узла.
type NodeStats struct {
	URL          string
	Active       bool
	SuccessCount uint64
	ErrorCount   uint64
	Latency      time.Duration
}

type node struct {
	client *rpc.Client
	url    string

	mu      sync.RWMutex
	active  bool
	success uint64
	errors  uint64
	latency time.Duration
}

func (n *node) record(ok bool, latency time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ok {
		n.success++
	} else {
		n.errors++
	}
	if n.latency == 0 {
		n.latency = latency
	} else {
		n.latency = (n.latency + latency) / 2
	}
}

func (n *node) setActive(state bool) {
	n.mu.Lock()
	n.active = state
	n.mu.Unlock()
}

func (n *node) isActive() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active
}

// pool распределяет запросы между узлами по кругу и переключается на
// следующий узел при транспортной ошибке.
type pool struct {
	nodes  []*node
	logger *zap.Logger

	mu   sync.Mutex
	curr int
}

func newPool(urls []string, logger *zap.Logger) *pool {
	p := &pool{logger: logger}
	for _, url := range urls {
		p.nodes = append(p.nodes, &node{client: rpc.New(url), url: url, active: true})
	}
	return p
}

// next возвращает следующий активный узел. Если все узлы выключены, они
// снова помечаются активными.
func (p *pool) next() *node {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.nodes) == 0 {
		return nil
	}

	for i := 0; i < len(p.nodes); i++ {
		p.curr = (p.curr + 1) % len(p.nodes)
		if p.nodes[p.curr].isActive() {
			return p.nodes[p.curr]
		}
	}
	for _, n := range p.nodes {
		n.setActive(true)
	}
	p.curr = (p.curr + 1) % len(p.nodes)
	return p.nodes[p.curr]
}

// execute runs op against the pool. Errors returned by a node's JSON-RPC
// handler are final; transport failures move on to the next node.
func (p *pool) execute(ctx context.Context, method string, op func(*rpc.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < len(p.nodes); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := p.next()
		if n == nil {
			return ErrNoActiveNodes
		}

		start := time.Now()
		err := op(n.client)
		n.record(err == nil, time.Since(start))
		if err == nil || isNodeAnswer(err) {
			return err
		}

		lastErr = &NodeError{Err: err, NodeURL: n.url, Method: method}
		p.logger.Debug("RPC node failed, switching",
			zap.String("node", n.url),
			zap.String("method", method),
			zap.Error(err))
		n.setActive(false)
	}
	if lastErr == nil {
		return ErrNoActiveNodes
	}
	return lastErr
}

func (p *pool) stats() []NodeStats {
	out := make([]NodeStats, 0, len(p.nodes))
	for _, n := range p.nodes {
		n.mu.RLock()
		out = append(out, NodeStats{
			URL:          n.url,
			Active:       n.active,
			SuccessCount: n.success,
			ErrorCount:   n.errors,
			Latency:      n.latency,
		})
		n.mu.RUnlock()
	}
	return out
}

func isNodeAnswer(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return errors.As(err, &rpcErr) || errors.Is(err, rpc.ErrNotFound)
}
