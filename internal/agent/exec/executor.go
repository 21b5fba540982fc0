package exec

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chat-relay-service/internal/observability/logging"
	"chat-relay-service/internal/relay"
)

// Driver is the application-specific collaborator that turns a relayed
// command into actions against the driven chat application.
type Driver interface {
	// SendMessage submits a chat message impersonating the named
	// participant.
	SendMessage(name, message string) error

	// Swipe cycles the latest reply in the given direction.
	Swipe(direction string) error

	// Regenerate re-rolls the latest reply.
	Regenerate() error

	// Edit replaces the text of the message at index.
	Edit(index int, text string) error
}

// Settle holds the post-execution waits per command type. A message
// triggers reply generation and needs far longer to settle than the
// other commands.
type Settle struct {
	Message time.Duration
	Default time.Duration
}

// DefaultSettle returns the production settle delays.
func DefaultSettle() Settle {
	return Settle{
		Message: 10 * time.Second,
		Default: 1500 * time.Millisecond,
	}
}

// For returns the settle delay for a normalized command type.
func (s Settle) For(cmdType string) time.Duration {
	if cmdType == relay.DefaultCommandType {
		return s.Message
	}
	return s.Default
}

// Executor drains commands strictly FIFO through the driver, one at a
// time, serving the settle delay after each before the next may run.
// Enqueue never blocks; commands arriving mid-drain simply queue up.
type Executor struct {
	driver    Driver
	settle    Settle
	lifecycle *Lifecycle
	log       zerolog.Logger

	// sleep is swappable so tests can run with compressed delays.
	sleep func(time.Duration)

	// onExecuted, when set, fires after each command completes its
	// settle delay. The agent uses it to force a transcript re-sync.
	onExecuted func(relay.Command)

	mu       sync.Mutex
	queue    []relay.Command
	draining bool
}

// New creates an executor over the given driver.
func New(driver Driver, settle Settle) *Executor {
	return &Executor{
		driver:    driver,
		settle:    settle,
		lifecycle: NewLifecycle(),
		log:       logging.WithComponent("executor"),
		sleep:     time.Sleep,
	}
}

// SetOnExecuted registers a hook fired after each drained command.
func (e *Executor) SetOnExecuted(fn func(relay.Command)) {
	e.mu.Lock()
	e.onExecuted = fn
	e.mu.Unlock()
}

// Enqueue appends the command and starts a drain loop when none is
// running.
func (e *Executor) Enqueue(cmd relay.Command) {
	e.mu.Lock()
	e.queue = append(e.queue, cmd)
	start := !e.draining
	if start {
		e.draining = true
	}
	e.mu.Unlock()
	if start {
		go e.drain()
	}
}

// State returns the executor's current lifecycle state.
func (e *Executor) State() State {
	return e.lifecycle.State()
}

// QueueDepth returns the number of commands waiting to run.
func (e *Executor) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Draining reports whether a drain loop is running.
func (e *Executor) Draining() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draining
}

func (e *Executor) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.draining = false
			e.mu.Unlock()
			return
		}
		cmd := e.queue[0]
		e.queue = e.queue[1:]
		hook := e.onExecuted
		e.mu.Unlock()

		cmdType := cmd.Type()

		e.lifecycle.BeginExecution()
		if err := e.execute(cmd, cmdType); err != nil {
			// Execution failures are contained: log and move on.
			e.log.Warn().Err(err).Str("commandType", cmdType).Msg("command failed")
		}
		e.lifecycle.BeginCooling()
		e.sleep(e.settle.For(cmdType))
		e.lifecycle.Settle()

		if hook != nil {
			hook(cmd)
		}
	}
}

func (e *Executor) execute(cmd relay.Command, cmdType string) error {
	e.log.Info().Str("commandType", cmdType).Msg("executing command")

	switch cmdType {
	case "message":
		return e.driver.SendMessage(cmd.String("name"), cmd.String("message"))
	case "swipe":
		return e.driver.Swipe(cmd.String("direction"))
	case "regenerate":
		return e.driver.Regenerate()
	case "edit":
		index, ok := cmd.Int("index")
		if !ok {
			e.log.Warn().Msg("edit command without index, skipping")
			return nil
		}
		return e.driver.Edit(index, cmd.String("text"))
	default:
		e.log.Warn().Str("commandType", cmdType).Msg("unknown command type, skipping")
		return nil
	}
}
