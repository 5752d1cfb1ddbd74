package stripe

// Stripe event types the service reacts to.
const (
	eventCheckoutCompleted     = "checkout.session.completed"
	eventSubscriptionCreated   = "customer.subscription.created"
	eventSubscriptionDeleted   = "customer.subscription.deleted"
	eventInvoicePaymentSuccess = "invoice.payment_succeeded"
	eventInvoicePaymentFailed  = "invoice.payment_failed"
)

// Metadata keys set on checkout sessions and subscriptions by the storefront.
const (
	metadataProduct  = "product_type"
	metadataClientID = "ga_client_id"
	metadataSource   = "source"
)
