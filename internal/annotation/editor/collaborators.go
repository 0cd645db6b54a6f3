package editor

// PromptOptions describes a confirmation dialog. An empty NegativeButton
// marks the prompt informational: the collaborator should resolve it
// true without offering a way to decline.
type PromptOptions struct {
	Title          string
	Text           string
	PositiveButton string
	NegativeButton string
}

// Prompter is the external UI collaborator for confirmation dialogs
// ahead of destructive actions. Confirm may suspend the calling action
// until the user answers; the editor applies no store mutation before
// the answer is known, and a false answer leaves all state untouched.
type Prompter interface {
	Confirm(opts PromptOptions) bool
}

// Playback is the external video transport collaborator.
type Playback interface {
	CurrentFrame() int
	Seek(frame int)
	NextFrame()
}

// alwaysConfirm is the Prompter used when none is supplied.
type alwaysConfirm struct{}

func (alwaysConfirm) Confirm(PromptOptions) bool { return true }
