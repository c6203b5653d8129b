package service

import "errors"

var (
	ErrPlayerNotFound         = errors.New("player not found")
	ErrVillageNotFound        = errors.New("village not found")
	ErrTargetVillageNotFound  = errors.New("target village not found")
	ErrMovementNotFound       = errors.New("movement not found")
	ErrForbidden              = errors.New("village belongs to another player")
	ErrQueueFull              = errors.New("queue is full")
	ErrMaxLevelReached        = errors.New("building is at maximum level")
	ErrInsufficientResources  = errors.New("not enough resources")
	ErrInsufficientPopulation = errors.New("not enough farm capacity")
	ErrInsufficientUnits      = errors.New("not enough units in the village")
	ErrBarracksRequired       = errors.New("village has no barracks")
	ErrUnknownBuilding        = errors.New("unknown building kind")
	ErrUnknownUnit            = errors.New("unknown unit kind")
	ErrInvalidCount           = errors.New("count must be positive")
	ErrSelfTarget             = errors.New("cannot target the origin village")
	ErrNoUnits                = errors.New("movement must carry at least one unit")
	ErrNotSupport             = errors.New("movement is not a support")
	ErrAlreadyReturning       = errors.New("movement is already returning")
	ErrAlreadyCompleted       = errors.New("movement is already completed")
	ErrEventAlreadyScheduled  = errors.New("another event already has a completion time")
)
