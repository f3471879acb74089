package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/finledger/finledger/internal/domain"
)

// TransactionToProperties converts a ledger transaction to Notion page
// properties. "Transaction ID" is the title and the idempotency key the sync
// matches on.
func TransactionToProperties(txn *domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: txn.ID.String(),
					},
				},
			},
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(txn.Date)
					return &d
				}(),
			},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(txn.Type),
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: txn.Amount.InexactFloat64(),
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: txn.Category,
			},
		},
		"Status": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(txn.Status),
			},
		},
		"Is Recurring": notionapi.CheckboxProperty{
			Checkbox: txn.IsRecurring,
		},
	}

	if txn.Description != "" {
		props["Description"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: txn.Description,
					},
				},
			},
		}
	}

	if txn.RecurringInterval != nil {
		props["Recurring Interval"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(*txn.RecurringInterval),
			},
		}
	}

	if txn.NextRecurringDate != nil {
		props["Next Occurrence"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(*txn.NextRecurringDate)
					return &d
				}(),
			},
		}
	}

	props["Account"] = notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: txn.AccountID.String(),
				},
			},
		},
	}

	return props
}

// AccountToProperties converts a ledger account to Notion page properties.
// "Account ID" is the title and the idempotency key.
func AccountToProperties(acc *domain.Account, syncedAt time.Time) notionapi.Properties {
	props := notionapi.Properties{
		"Account ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: acc.ID.String(),
					},
				},
			},
		},
		"Name": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: acc.Name,
					},
				},
			},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(acc.Type),
			},
		},
		"Balance": notionapi.NumberProperty{
			Number: acc.Balance.InexactFloat64(),
		},
		"Is Default": notionapi.CheckboxProperty{
			Checkbox: acc.IsDefault,
		},
		"Synced At": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(syncedAt)
					return &d
				}(),
			},
		},
	}
	return props
}

// extractPageKey reads the title property used as the idempotency key on a
// mirrored page.
func extractPageKey(page notionapi.Page, property string) string {
	prop, ok := page.Properties[property]
	if !ok {
		return ""
	}
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		return ""
	}
	return title.Title[0].PlainText
}
