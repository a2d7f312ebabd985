package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskRunnerSchedulesAndFires(t *testing.T) {
	runner := NewTaskRunner()
	defer runner.StopAll()

	fired := make(chan struct{})
	runner.Schedule("tick", 10*time.Millisecond, func() { close(fired) })
	assert.True(t, runner.Pending("tick"))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task never fired")
	}
	assert.False(t, runner.Pending("tick"), "fired task is no longer pending")
}

func TestTaskRunnerSameNameReplaces(t *testing.T) {
	runner := NewTaskRunner()
	defer runner.StopAll()

	fired := make(chan string, 2)
	runner.Schedule("slot", 50*time.Millisecond, func() { fired <- "first" })
	runner.Schedule("slot", 10*time.Millisecond, func() { fired <- "second" })

	select {
	case got := <-fired:
		assert.Equal(t, "second", got, "only the replacement should fire")
	case <-time.After(2 * time.Second):
		t.Fatal("replacement task never fired")
	}

	select {
	case got := <-fired:
		t.Fatalf("superseded task fired: %s", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTaskRunnerCancel(t *testing.T) {
	runner := NewTaskRunner()
	defer runner.StopAll()

	fired := make(chan struct{}, 1)
	runner.Schedule("doomed", 20*time.Millisecond, func() { fired <- struct{}{} })
	assert.True(t, runner.Cancel("doomed"))
	assert.False(t, runner.Cancel("doomed"), "second cancel finds nothing")

	select {
	case <-fired:
		t.Fatal("cancelled task fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestTaskRunnerStopAllRejectsNewTasks(t *testing.T) {
	runner := NewTaskRunner()

	fired := make(chan struct{}, 2)
	runner.Schedule("a", 20*time.Millisecond, func() { fired <- struct{}{} })
	runner.Schedule("b", 20*time.Millisecond, func() { fired <- struct{}{} })
	runner.StopAll()

	runner.Schedule("c", time.Millisecond, func() { fired <- struct{}{} })
	assert.False(t, runner.Pending("c"), "stopped runner refuses new tasks")

	select {
	case <-fired:
		t.Fatal("task survived StopAll")
	case <-time.After(80 * time.Millisecond):
	}

	runner.Reset()
	runner.Schedule("d", time.Millisecond, func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not accept tasks after Reset")
	}
}
