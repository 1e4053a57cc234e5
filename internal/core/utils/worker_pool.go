package utils

import "sync"

// Task is a unit of work tagged with its position in the input.
type Task[T any] struct {
	Index int
	Value T
}

type CompletedTask[T any] struct {
	Index  int
	Result T
	Error  error
}

func RunInPool[In any, Out any](worker func(In) (Out, error), queue chan Task[In], completed chan CompletedTask[Out], maxWorkers int) {
	RunInPoolWithState(
		func() (struct{}, error) { return struct{}{}, nil },
		func(struct{}) {},
		func(_ struct{}, in In) (Out, error) { return worker(in) },
		queue, completed, maxWorkers,
	)
}

// RunInPoolWithState is RunInPool where every worker owns a private state value,
// for resources that are expensive to create and unsafe to share. A worker
// creates its state lazily on its first task and releases it when the queue is
// drained. If creating the state fails, every task the worker takes fails with
// that error.
func RunInPoolWithState[S any, In any, Out any](
	newState func() (S, error),
	release func(S),
	worker func(S, In) (Out, error),
	queue chan Task[In],
	completed chan CompletedTask[Out],
	maxWorkers int,
) {
	workers := min(len(queue), maxWorkers)

	go func() {
		wg := sync.WaitGroup{}
		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				var (
					state       S
					initialized bool
					initErr     error
				)
				defer func() {
					if initialized {
						release(state)
					}
				}()

				for {
					next, ok := <-queue
					if !ok {
						return
					}

					if !initialized && initErr == nil {
						state, initErr = newState()
						initialized = initErr == nil
					}
					if initErr != nil {
						completed <- CompletedTask[Out]{Index: next.Index, Error: initErr}
						continue
					}

					res, err := worker(state, next.Value)
					if err != nil {
						completed <- CompletedTask[Out]{Index: next.Index, Error: err}
					} else {
						completed <- CompletedTask[Out]{Index: next.Index, Result: res, Error: nil}
					}
				}
			}()
		}

		wg.Wait()

		close(completed)
	}()
}

// QueueOf returns a closed, buffered queue holding the items in order.
func QueueOf[T any](items []T) chan Task[T] {
	queue := make(chan Task[T], len(items))
	for i, item := range items {
		queue <- Task[T]{Index: i, Value: item}
	}
	close(queue)
	return queue
}

// CollectOrdered drains completed and places every task at its input index.
func CollectOrdered[T any](completed chan CompletedTask[T], n int) []CompletedTask[T] {
	ordered := make([]CompletedTask[T], n)
	for task := range completed {
		if task.Index >= 0 && task.Index < n {
			ordered[task.Index] = task
		}
	}
	return ordered
}
