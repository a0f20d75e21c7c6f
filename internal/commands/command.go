package commands

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/remind/internal/model"
	"github.com/sandeepkv93/remind/internal/view"
)

type Type string

const (
	TypeAdd        Type = "add"
	TypeList       Type = "list"
	TypeComplete   Type = "complete"
	TypeUncomplete Type = "uncomplete"
	TypeExclude    Type = "exclude"
	TypeSkip       Type = "skip"
	TypeSplit      Type = "split"
	TypeDelete     Type = "delete"
	TypeWatch      Type = "watch"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type AddArgs struct {
	Date   string
	Time   string
	Repeat string
	Title  string
}

type ListArgs struct {
	Tab string
}

type CompleteArgs struct {
	ID string
}

type ExcludeArgs struct {
	SeriesID string
	Date     string
}

type SkipArgs struct {
	SeriesID string
}

type SplitArgs struct {
	SeriesID string
	Anchor   string
}

type DeleteArgs struct {
	ID string
}

// WatchArgs carries no options yet; the verb runs the trigger loop until
// interrupted.
type WatchArgs struct{}

type Command struct {
	Type       Type
	Raw        string
	Add        *AddArgs
	List       *ListArgs
	Complete   *CompleteArgs
	Uncomplete *CompleteArgs
	Exclude    *ExcludeArgs
	Skip       *SkipArgs
	Split      *SplitArgs
	Delete     *DeleteArgs
	Watch      *WatchArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeList:
		return parseList(input, args)
	case TypeComplete:
		return parseComplete(input, args, TypeComplete)
	case TypeUncomplete:
		return parseComplete(input, args, TypeUncomplete)
	case TypeExclude:
		return parseExclude(input, args)
	case TypeSkip:
		return parseSkip(input, args)
	case TypeSplit:
		return parseSplit(input, args)
	case TypeDelete:
		return parseDelete(input, args)
	case TypeWatch:
		return parseWatch(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a date and a title"}
	}
	date := args[0]
	if !model.ValidDate(date) {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("add requires a YYYY-MM-DD date, got %q", date)}
	}
	add := AddArgs{Date: date}
	titleParts := make([]string, 0, len(args)-1)
	for _, arg := range args[1:] {
		lower := strings.ToLower(arg)
		switch {
		case strings.HasPrefix(lower, "at:"):
			add.Time = strings.TrimSpace(arg[len("at:"):])
		case strings.HasPrefix(lower, "every:"):
			add.Repeat = strings.ToLower(strings.TrimSpace(arg[len("every:"):]))
		default:
			titleParts = append(titleParts, arg)
		}
	}
	add.Title = strings.TrimSpace(strings.Join(titleParts, " "))
	if add.Title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	if add.Repeat != "" && !model.RepeatType(add.Repeat).IsValid() {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown repeat type: %s", add.Repeat)}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &add}, nil
}

func parseList(raw string, args []string) (Command, error) {
	tab := string(view.TabToday)
	if len(args) > 0 {
		tab = strings.ToLower(args[0])
	}
	if !view.Tab(tab).IsValid() {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown tab: %s", tab)}
	}
	return Command{Type: TypeList, Raw: raw, List: &ListArgs{Tab: tab}}, nil
}

func parseComplete(raw string, args []string, typ Type) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a task or occurrence id", typ)}
	}
	cmd := Command{Type: typ, Raw: raw}
	if typ == TypeComplete {
		cmd.Complete = &CompleteArgs{ID: args[0]}
	} else {
		cmd.Uncomplete = &CompleteArgs{ID: args[0]}
	}
	return cmd, nil
}

func parseExclude(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "exclude requires a series id and a date"}
	}
	if !model.ValidDate(args[1]) {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("exclude requires a YYYY-MM-DD date, got %q", args[1])}
	}
	return Command{Type: TypeExclude, Raw: raw, Exclude: &ExcludeArgs{SeriesID: args[0], Date: args[1]}}, nil
}

func parseSkip(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "skip requires a series id"}
	}
	return Command{Type: TypeSkip, Raw: raw, Skip: &SkipArgs{SeriesID: args[0]}}, nil
}

func parseSplit(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "split requires a series id and an anchor date"}
	}
	if !model.ValidDate(args[1]) {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("split requires a YYYY-MM-DD anchor, got %q", args[1])}
	}
	return Command{Type: TypeSplit, Raw: raw, Split: &SplitArgs{SeriesID: args[0], Anchor: args[1]}}, nil
}

func parseDelete(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "delete requires a task or occurrence id"}
	}
	return Command{Type: TypeDelete, Raw: raw, Delete: &DeleteArgs{ID: args[0]}}, nil
}

func parseWatch(raw string, args []string) (Command, error) {
	if len(args) > 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "watch takes no arguments"}
	}
	return Command{Type: TypeWatch, Raw: raw, Watch: &WatchArgs{}}, nil
}
