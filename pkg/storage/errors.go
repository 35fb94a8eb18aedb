package storage

import "errors"

// ErrNotFound is returned when a user or session does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned when creating a user whose id is already taken.
var ErrUserExists = errors.New("user already exists")

// ErrDuplicateDepositRef is returned when a deposit reference is already bound to a session.
var ErrDuplicateDepositRef = errors.New("deposit reference already bound to a session")

// ErrActiveSession is returned when a user already holds an OPEN or SETTLING session.
var ErrActiveSession = errors.New("user already has an active session")

// ErrVersionConflict is returned when a user record changed between read and write.
var ErrVersionConflict = errors.New("user record was modified concurrently")

// ErrStateConflict is returned when a session is not in the state a transition requires.
var ErrStateConflict = errors.New("session is not in the expected state")
