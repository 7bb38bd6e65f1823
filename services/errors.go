package services

import "errors"

var (
	// ErrBillExists signals a duplicate bill for the same contract and cycle.
	ErrBillExists = errors.New("bill already exists for this contract and cycle")

	// ErrNoMeterReadings signals that bill creation was requested before any
	// meter reading was recorded for the room in the target cycle.
	ErrNoMeterReadings = errors.New("no meter readings recorded for this room and cycle")

	ErrCycleNotFound    = errors.New("billing cycle not found")
	ErrContractNotFound = errors.New("contract not found")
	ErrBillNotFound     = errors.New("bill not found")
	ErrRoomNotFound     = errors.New("room not found")
)
