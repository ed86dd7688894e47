package gateway

import "errors"

var (
	errNoLoader             = errors.New("no configuration loader wired into this gateway")
	errUnknownAction        = errors.New("action must be one of start, stop, restart")
	errStreamingUnsupported = errors.New("response writer does not support streaming")
)
