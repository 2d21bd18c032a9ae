package service

import (
	"fmt"
	"time"
)

func paymentFailedTemplate(name, appName string) (string, string) {
	subject := fmt.Sprintf("Payment failed for your %s subscription", appName)
	body := fmt.Sprintf(`Hi %s,

We couldn't process the latest payment for your subscription. Please
update your payment method to keep your subscription active.

We'll retry the charge automatically over the next few days.

Best,
The %s Team`, name, appName)

	return subject, body
}

func subscriptionCanceledTemplate(name, appName string, periodEnd *time.Time) (string, string) {
	subject := fmt.Sprintf("Your %s subscription has been canceled", appName)

	access := "Your access has ended."
	if periodEnd != nil && periodEnd.After(time.Now()) {
		access = fmt.Sprintf("You keep access until %s.", periodEnd.Format("January 2, 2006"))
	}

	body := fmt.Sprintf(`Hi %s,

Your subscription has been canceled. %s

You can resubscribe anytime from the billing page.

Best,
The %s Team`, name, access, appName)

	return subject, body
}
