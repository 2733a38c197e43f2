package log

import "log/slog"

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func StepID[T ~string](id T) slog.Attr {
	return slog.String("step_id", string(id))
}

func Provider[T ~string](id T) slog.Attr {
	return slog.String("provider", string(id))
}

func InterruptID(id string) slog.Attr {
	return slog.String("interrupt_id", id)
}

func Strategy[T ~string](s T) slog.Attr {
	return slog.String("strategy", string(s))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
