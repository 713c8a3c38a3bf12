package ensemble

import (
	"time"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/log"
)

// ProgressFunc is invoked after each completed tree with the percentage of
// trees completed (0 to 100) and the completion count so far. Calls arrive
// in completion-count order even when trees are built in parallel.
type ProgressFunc func(percentComplete float64, treesCompleted int)

// CallbackEnv carries the training state visible to callbacks after each
// completed tree round.
type CallbackEnv struct {
	TreesCompleted int
	TotalTrees     int
	BeginTime      time.Time
	StopTraining   bool
}

// Callback is invoked after each completed tree round. Setting
// env.StopTraining truncates the forest to the trees finished so far.
type Callback func(env *CallbackEnv) error

// LogProgress logs a progress line every period completed trees.
func LogProgress(period int) Callback {
	logger := log.GetLoggerWithName("ensemble.progress")
	return func(env *CallbackEnv) error {
		if period > 0 && env.TreesCompleted%period == 0 {
			logger.Info("Training progress",
				log.TreesCompletedKey, env.TreesCompleted,
				log.TreesKey, env.TotalTrees)
		}
		return nil
	}
}

// RecordCompletions appends each completion count to history.
func RecordCompletions(history *[]int) Callback {
	return func(env *CallbackEnv) error {
		*history = append(*history, env.TreesCompleted)
		return nil
	}
}

// TimeLimit stops training once the elapsed time exceeds maxDuration. The
// trees completed before the limit are kept.
func TimeLimit(maxDuration time.Duration) Callback {
	logger := log.GetLoggerWithName("ensemble.progress")
	return func(env *CallbackEnv) error {
		if time.Since(env.BeginTime) > maxDuration {
			logger.Warn("Time limit reached",
				log.TreesCompletedKey, env.TreesCompleted,
				log.DurationMsKey, time.Since(env.BeginTime).Milliseconds())
			env.StopTraining = true
		}
		return nil
	}
}

// CallbackList runs callbacks in order, stopping at the first error.
type CallbackList struct {
	callbacks []Callback
}

// NewCallbackList creates a CallbackList.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{callbacks: callbacks}
}

// Add appends a callback.
func (cl *CallbackList) Add(cb Callback) {
	cl.callbacks = append(cl.callbacks, cb)
}

// Run invokes every callback with env.
func (cl *CallbackList) Run(env *CallbackEnv) error {
	for _, cb := range cl.callbacks {
		if err := cb(env); err != nil {
			return err
		}
	}
	return nil
}
