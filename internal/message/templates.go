package message

// builtinTemplates is the message table, grouped by business type then event
// type through the BusinessType/EventType fields. Each entry's last fallback
// is its generic catch-all and is used verbatim when nothing richer can be
// satisfied.
var builtinTemplates = []Template{
	// ecommerce
	{
		ID:           "ecom-purchase-full",
		BusinessType: "ecommerce",
		EventType:    "purchase",
		Message:      "{name} from {location} just bought {product} for {amount}",
		RequiredData: []string{"name", "location", "product", "amount"},
		Fallbacks: []string{
			"{name} from {location} just bought {product}",
			"{name} just bought {product}",
			"{name} just made a purchase",
			"Someone just made a purchase",
		},
	},
	{
		ID:           "ecom-purchase-product",
		BusinessType: "ecommerce",
		EventType:    "purchase",
		Message:      "{name} just bought {product}",
		RequiredData: []string{"name", "product"},
		Fallbacks: []string{
			"{name} just made a purchase",
			"Someone just bought {product}",
			"Someone just made a purchase",
		},
	},
	{
		ID:           "ecom-cart",
		BusinessType: "ecommerce",
		EventType:    "add_to_cart",
		Message:      "{name} added {product} to their cart",
		RequiredData: []string{"name", "product"},
		Fallbacks: []string{
			"Someone added {product} to their cart",
			"Someone is shopping right now",
		},
	},
	// saas
	{
		ID:           "saas-signup-full",
		BusinessType: "saas",
		EventType:    "signup",
		Message:      "{name} from {company} just signed up for {plan}",
		RequiredData: []string{"name", "company", "plan"},
		Fallbacks: []string{
			"{name} just signed up for {plan}",
			"{name} just signed up",
			"Someone just signed up",
		},
	},
	{
		ID:           "saas-upgrade",
		BusinessType: "saas",
		EventType:    "upgrade",
		Message:      "{name} upgraded to the {plan} plan",
		RequiredData: []string{"name", "plan"},
		Fallbacks: []string{
			"Someone upgraded to the {plan} plan",
			"Someone just upgraded their plan",
		},
	},
	// service businesses
	{
		ID:           "service-booking-full",
		BusinessType: "service",
		EventType:    "booking",
		Message:      "{name} from {location} booked {service}",
		RequiredData: []string{"name", "location", "service"},
		Fallbacks: []string{
			"{name} booked {service}",
			"{name} just made a booking",
			"Someone just made a booking",
		},
	},
	// shared review wording
	{
		ID:           "any-review",
		BusinessType: "ecommerce",
		EventType:    "review",
		Message:      "{name} left a {rating}-star review: \"{text}\"",
		RequiredData: []string{"name", "rating", "text"},
		Fallbacks: []string{
			"{name} left a {rating}-star review",
			"{name} left a review",
			"Someone left a review",
		},
	},
}

// genericMessages is the last-resort per-event-type wording used when no
// template exists for a (businessType, eventType) pair at all.
var genericMessages = map[string]string{
	"purchase":    "just made a purchase",
	"add_to_cart": "added an item to their cart",
	"signup":      "just signed up",
	"upgrade":     "just upgraded their plan",
	"booking":     "just made a booking",
	"review":      "left a review",
	"download":    "downloaded a resource",
	"submission":  "submitted a form",
}

const genericDefault = "took an action"
