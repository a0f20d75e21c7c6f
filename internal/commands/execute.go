package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add        func(AddArgs) (Result, error)
	List       func(ListArgs) (Result, error)
	Complete   func(CompleteArgs) (Result, error)
	Uncomplete func(CompleteArgs) (Result, error)
	Exclude    func(ExcludeArgs) (Result, error)
	Skip       func(SkipArgs) (Result, error)
	Split      func(SplitArgs) (Result, error)
	Delete     func(DeleteArgs) (Result, error)
	Watch      func(WatchArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "add handler not configured"}
		}
		return handlers.Add(*cmd.Add)
	case TypeList:
		if handlers.List == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "list handler not configured"}
		}
		return handlers.List(*cmd.List)
	case TypeComplete:
		if handlers.Complete == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "complete handler not configured"}
		}
		return handlers.Complete(*cmd.Complete)
	case TypeUncomplete:
		if handlers.Uncomplete == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "uncomplete handler not configured"}
		}
		return handlers.Uncomplete(*cmd.Uncomplete)
	case TypeExclude:
		if handlers.Exclude == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "exclude handler not configured"}
		}
		return handlers.Exclude(*cmd.Exclude)
	case TypeSkip:
		if handlers.Skip == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "skip handler not configured"}
		}
		return handlers.Skip(*cmd.Skip)
	case TypeSplit:
		if handlers.Split == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "split handler not configured"}
		}
		return handlers.Split(*cmd.Split)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "delete handler not configured"}
		}
		return handlers.Delete(*cmd.Delete)
	case TypeWatch:
		if handlers.Watch == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "watch handler not configured"}
		}
		return handlers.Watch(*cmd.Watch)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
