package storage

import "errors"

var errCorrupt = errors.New("stored value is not valid JSON")
