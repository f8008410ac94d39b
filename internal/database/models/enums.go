package models

type OrderStatus string

const (
	OrderStatusOpen OrderStatus = "OPEN"
	OrderStatusPaid OrderStatus = "PAID"
	OrderStatusVoid OrderStatus = "VOID"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodMixed    PaymentMethod = "MIXED"
)

type PaymentChannel string

const (
	PaymentChannelCash     PaymentChannel = "CASH"
	PaymentChannelCard     PaymentChannel = "CARD"
	PaymentChannelTransfer PaymentChannel = "TRANSFER"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

type Provider string

const (
	ProviderManual  Provider = "MANUAL"
	ProviderCardnet Provider = "CARDNET"
	ProviderAzul    Provider = "AZUL"
)

type IntegrationType string

const (
	IntegrationCardLink IntegrationType = "CARD_LINK"
	IntegrationTerminal IntegrationType = "TERMINAL"
)
