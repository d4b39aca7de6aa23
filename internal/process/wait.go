package process

// waiter is the platform primitive a monitor blocks in. wait returns true
// once the child has terminated and false when cancel woke it. cancel and
// close are safe to call from any goroutine, in any order, more than once.
type waiter interface {
	wait() (bool, error)
	cancel()
	close() error
}
