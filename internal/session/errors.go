package session

import "errors"

var errUnknownRead = errors.New("profile read failed")
