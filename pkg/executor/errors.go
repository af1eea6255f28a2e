package executor

import "errors"

var (
	ErrChunking = errors.New("error during chunking phase")
	ErrMap      = errors.New("error during map phase")
	ErrReduce   = errors.New("error during reduce phase")
	ErrMerge    = errors.New("error during merge phase")
)
