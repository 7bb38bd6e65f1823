package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeUsageElectricRollover(t *testing.T) {
	// 4-digit odometer wrapped around zero during the cycle
	assert.Equal(t, 350.0, ComputeUsage(9823, 173, UtilityElectric))
}

func TestComputeUsageElectricNoWrap(t *testing.T) {
	assert.Equal(t, 400.0, ComputeUsage(100, 500, UtilityElectric))
}

func TestComputeUsageElectricEqualReadings(t *testing.T) {
	assert.Equal(t, 0.0, ComputeUsage(1234, 1234, UtilityElectric))
}

func TestComputeUsageWater(t *testing.T) {
	assert.Equal(t, 400.0, ComputeUsage(100, 500, UtilityWater))
}

func TestComputeUsageWaterNegativePassThrough(t *testing.T) {
	// Water meters do not wrap; the bad entry is surfaced, not clamped
	assert.Equal(t, -400.0, ComputeUsage(500, 100, UtilityWater))
}
