package mock_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/dispatch/internal/carrier/mock"
	"github.com/courierhq/dispatch/pkg/api"
)

func newFastAdapter(options ...mock.Option) *mock.Adapter {
	options = append([]mock.Option{mock.WithLatency(0)}, options...)
	return mock.New(options...)
}

func TestCheckServiceability(t *testing.T) {
	adapter := newFastAdapter()

	res, err := adapter.CheckServiceability(
		context.Background(), "10001", "94105",
	)
	require.NoError(t, err)
	assert.True(t, res.Serviceable)
	assert.Equal(t, mock.DefaultProviderID, res.Provider)
	assert.Len(t, res.Services, 3)
}

func TestBlockedRoutes(t *testing.T) {
	adapter := newFastAdapter()

	for _, route := range [][2]string{
		{"00000", "99999"},
		{"12345", "00000"},
	} {
		res, err := adapter.CheckServiceability(
			context.Background(), route[0], route[1],
		)
		require.NoError(t, err)
		assert.False(t, res.Serviceable)
		assert.NotEmpty(t, res.Message)
	}

	// the reverse direction is not blocked
	res, err := adapter.CheckServiceability(
		context.Background(), "99999", "00000",
	)
	require.NoError(t, err)
	assert.True(t, res.Serviceable)
}

func TestGetRates(t *testing.T) {
	adapter := newFastAdapter()

	quotes, err := adapter.GetRates(context.Background(),
		&api.ShipmentRequest{
			Origin:      "10001",
			Destination: "94105",
			WeightKg:    2.0,
		})
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	byCode := map[string]api.RateQuote{}
	for _, q := range quotes {
		byCode[q.ServiceCode] = q
	}
	assert.Equal(t, 20.0, byCode["MOCK_STD"].Price)
	assert.Equal(t, 40.0, byCode["MOCK_EXP"].Price)
	assert.Equal(t, 70.0, byCode["MOCK_PRI"].Price)
	assert.Equal(t, 5, byCode["MOCK_STD"].DeliveryDays)
	assert.Equal(t, 1, byCode["MOCK_PRI"].DeliveryDays)
}

func TestGetRatesUsesVolumetricWeight(t *testing.T) {
	adapter := newFastAdapter()

	// 50x40x30cm / 5000 = 12kg volumetric, above the 2kg actual
	quotes, err := adapter.GetRates(context.Background(),
		&api.ShipmentRequest{
			Origin:      "10001",
			Destination: "94105",
			WeightKg:    2.0,
			LengthCm:    50,
			WidthCm:     40,
			HeightCm:    30,
		})
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	for _, q := range quotes {
		if q.ServiceCode == "MOCK_STD" {
			assert.Equal(t, 120.0, q.Price)
		}
	}
}

func TestCreateShipment(t *testing.T) {
	adapter := newFastAdapter()

	label, err := adapter.CreateShipment(context.Background(),
		&api.ShipmentRequest{
			Origin:      "10001",
			Destination: "94105",
			WeightKg:    2.0,
		}, "MOCK_EXP")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(label.TrackingNumber, "MOCK"))
	assert.Contains(t, label.LabelURL, label.TrackingNumber)
	assert.True(t, strings.HasSuffix(label.LabelURL, ".pdf"))
	assert.Equal(t, mock.DefaultProviderID, label.Provider)
}

func TestLatencyRespectsContext(t *testing.T) {
	adapter := mock.New(mock.WithLatency(time.Second))

	ctx, cancel := context.WithTimeout(
		context.Background(), 10*time.Millisecond,
	)
	defer cancel()

	_, err := adapter.CheckServiceability(ctx, "10001", "94105")
	assert.ErrorIs(t, err, api.ErrAdapterTransport)
}

func TestWithID(t *testing.T) {
	adapter := newFastAdapter(mock.WithID("mock-2", "Second Mock"))
	assert.Equal(t, api.ProviderID("mock-2"), adapter.ID())
	assert.Equal(t, "Second Mock", adapter.Name())
}
