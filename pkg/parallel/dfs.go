package parallel

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DFSConfig bounds a parallel depth-first traversal.
type DFSConfig struct {
	// MaxStackSize is the depth a worker's local stack must exceed
	// before it considers splitting off a new task.
	MaxStackSize int

	// MaxTasks bounds the total number of concurrently running DFS
	// tasks (the original worker plus every task it splits off).
	// Default: runtime.NumCPU().
	MaxTasks int
}

// DFSVisitor is called once per frame popped off a worker's stack. It
// returns the frame's successors to push; a nil/empty slice is a leaf.
type DFSVisitor[T any] func(ctx context.Context, frame T) ([]T, error)

// RunDFS performs a parallel depth-first traversal starting from roots.
// Each worker pops frames from its own local stack and calls visit. When
// a worker's stack grows past cfg.MaxStackSize, it tries to claim one of
// a bounded pool of free task tokens; on success it splits its stack in
// half and spawns a new task to drain the other half concurrently,
// mirroring the CAVE engine's stack-splitting DFS scheduler. A token is
// returned to the pool whenever a split-off task's stack drains dry.
func RunDFS[T any](ctx context.Context, roots []T, cfg DFSConfig, visit DFSVisitor[T]) error {
	if len(roots) == 0 {
		return nil
	}
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = DefaultPoolConfig().workers()
	}
	maxStack := cfg.MaxStackSize
	if maxStack <= 0 {
		maxStack = 1024
	}

	var mu sync.Mutex
	freeTokens := maxTasks - 1 // the root task itself holds no token

	tryClaimToken := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if freeTokens <= 0 {
			return false
		}
		freeTokens--
		return true
	}
	returnToken := func() {
		mu.Lock()
		freeTokens++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	var spawn func(stack []T, holdsToken bool)

	spawn = func(stack []T, holdsToken bool) {
		g.Go(func() error {
			if holdsToken {
				defer returnToken()
			}
			for len(stack) > 0 {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				if len(stack) > maxStack && tryClaimToken() {
					half := len(stack) / 2
					split := append([]T(nil), stack[half:]...)
					stack = stack[:half]
					spawn(split, true)
				}

				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				next, err := visit(gctx, top)
				if err != nil {
					return err
				}
				stack = append(stack, next...)
			}
			return nil
		})
	}

	spawn(append([]T(nil), roots...), false)
	return g.Wait()
}
