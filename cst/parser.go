package cst

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// ErrPoolClosed indicates parser acquisition failed because the pool is
// closed.
var ErrPoolClosed = errors.New("cst: parser pool is closed")

// Pool hands out stateless *tree_sitter.Parser instances for concurrent
// requests (spec.md §5: "Parser instances are per-request or pooled;
// no shared mutable parse state across requests").
type Pool struct {
	size    int
	parsers chan *tree_sitter.Parser
	closeCh chan struct{}

	closed  atomic.Bool
	once    sync.Once
	holders sync.WaitGroup

	lang *tree_sitter.Language
}

// NewPool creates a parser pool sized to the number of available CPUs.
func NewPool() *Pool {
	return NewPoolWithSize(defaultPoolSize())
}

// NewPoolWithSize creates a parser pool with explicit capacity.
func NewPoolWithSize(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	lang := Language()

	p := &Pool{
		size:    size,
		parsers: make(chan *tree_sitter.Parser, size),
		closeCh: make(chan struct{}),
		lang:    lang,
	}

	for range size {
		parser := tree_sitter.NewParser()
		if err := parser.SetLanguage(lang); err != nil {
			panic(fmt.Sprintf("cst: set grammar: %v", err))
		}
		p.parsers <- parser
	}

	return p
}

func defaultPoolSize() int {
	n := runtime.NumCPU()
	if n <= 0 {
		return 1
	}
	return n
}

// Acquire blocks until a parser is available or ctx is canceled.
func (p *Pool) Acquire(ctx context.Context) (*tree_sitter.Parser, bool) {
	if p.closed.Load() {
		return nil, false
	}

	select {
	case <-ctx.Done():
		return nil, false
	case <-p.closeCh:
		return nil, false
	case parser := <-p.parsers:
		if p.closed.Load() {
			parser.Close()
			return nil, false
		}
		p.holders.Add(1)
		return parser, true
	}
}

// Release returns a parser to the pool.
func (p *Pool) Release(parser *tree_sitter.Parser) {
	if parser == nil {
		return
	}
	defer p.holders.Done()

	if p.closed.Load() {
		parser.Close()
		return
	}

	select {
	case p.parsers <- parser:
	case <-p.closeCh:
		parser.Close()
	}
}

// Close releases every pooled parser. Acquire calls in flight observe
// ErrPoolClosed once their holder count drains.
func (p *Pool) Close() error {
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.closeCh)
		p.holders.Wait()

		for {
			select {
			case parser := <-p.parsers:
				parser.Close()
			default:
				return
			}
		}
	})

	return nil
}

// Parse parses content using a pooled parser and returns the resulting
// tree. The caller owns the tree and must call tree.Close().
func (p *Pool) Parse(ctx context.Context, content []byte) (*tree_sitter.Tree, error) {
	parser, ok := p.Acquire(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrPoolClosed
	}
	defer p.Release(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("cst: parse returned nil tree")
	}

	return tree, nil
}

// Reparse parses content incrementally against oldTree, which must have had
// its edits applied via tree_sitter.Tree.Edit beforehand.
func (p *Pool) Reparse(ctx context.Context, content []byte, oldTree *tree_sitter.Tree) (*tree_sitter.Tree, error) {
	parser, ok := p.Acquire(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrPoolClosed
	}
	defer p.Release(parser)

	tree := parser.Parse(content, oldTree)
	if tree == nil {
		return nil, fmt.Errorf("cst: reparse returned nil tree")
	}

	return tree, nil
}
