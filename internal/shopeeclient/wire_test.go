package shopeeclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveShippingCarrierPriority(t *testing.T) {
	cases := []struct {
		name string
		e    OrderDetailEntry
		want string
	}{
		{
			name: "package carrier wins",
			e: OrderDetailEntry{
				PackageList:             []PackageEntry{{ShippingCarrier: "jnt"}},
				ShippingCarrier:         "ninja-van",
				CheckoutShippingCarrier: "standard",
			},
			want: "jnt",
		},
		{
			name: "falls back to order-level shipping carrier",
			e: OrderDetailEntry{
				PackageList:             []PackageEntry{{ShippingCarrier: ""}},
				ShippingCarrier:         "ninja-van",
				CheckoutShippingCarrier: "standard",
			},
			want: "ninja-van",
		},
		{
			name: "falls back to checkout carrier when package list is empty",
			e: OrderDetailEntry{
				CheckoutShippingCarrier: "standard",
			},
			want: "standard",
		},
		{
			name: "empty when nothing is set",
			e:    OrderDetailEntry{},
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.e.ResolveShippingCarrier())
		})
	}
}

func TestResolveTrackingNumberPriority(t *testing.T) {
	cases := []struct {
		name string
		r    TrackingNumberResult
		want string
	}{
		{"tracking_number wins", TrackingNumberResult{TrackingNumber: "TN1", FirstMileTrackingNumber: "FM1"}, "TN1"},
		{"falls back to first mile", TrackingNumberResult{FirstMileTrackingNumber: "FM1", LastMileTrackingNumber: "LM1"}, "FM1"},
		{"falls back to last mile", TrackingNumberResult{LastMileTrackingNumber: "LM1", PLPNumber: "PLP1"}, "LM1"},
		{"falls back to plp", TrackingNumberResult{PLPNumber: "PLP1"}, "PLP1"},
		{"empty when nothing is set", TrackingNumberResult{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.r.ResolveTrackingNumber())
		})
	}
}

func TestResolveCarrierNamePriority(t *testing.T) {
	cases := []struct {
		name string
		r    DetailedTrackingInfoResult
		want string
	}{
		{"shipping_provider_name wins", DetailedTrackingInfoResult{ShippingProviderName: "A", LogisticName: "B"}, "A"},
		{"falls back to logistic_name", DetailedTrackingInfoResult{LogisticName: "B", CarrierName: "C"}, "B"},
		{"falls back to carrier_name", DetailedTrackingInfoResult{CarrierName: "C", ShippingProvider: "D"}, "C"},
		{"falls back to shipping_provider", DetailedTrackingInfoResult{ShippingProvider: "D", Carrier: "E"}, "D"},
		{"falls back to carrier", DetailedTrackingInfoResult{Carrier: "E", LogisticsChannel: "F"}, "E"},
		{"falls back to logistics_channel", DetailedTrackingInfoResult{LogisticsChannel: "F"}, "F"},
		{"empty when nothing is set", DetailedTrackingInfoResult{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.r.ResolveCarrierName())
		})
	}
}
