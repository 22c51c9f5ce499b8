package model

import "time"

// NotificationSettings are the channels a user wants updates on
type NotificationSettings struct {
	Email bool `json:"email" bson:"email"`
	Push  bool `json:"push" bson:"push"`
}

// PaymentMethod is a saved payout destination
type PaymentMethod struct {
	ID        string           `json:"id" bson:"id"`
	Type      WithdrawalMethod `json:"type" bson:"type"`
	Details   string           `json:"details" bson:"details"`
	IsDefault bool             `json:"isDefault" bson:"isDefault"`
}

// Profile is the stored account data of a user. It is keyed by the session
// user id and created on first access.
type Profile struct {
	UserID         string               `json:"userId" bson:"_id"`
	Name           string               `json:"name" bson:"name"`
	Email          string               `json:"email" bson:"email"`
	Phone          string               `json:"phone" bson:"phone"`
	Notifications  NotificationSettings `json:"notifications" bson:"notifications"`
	PaymentMethods []PaymentMethod      `json:"paymentMethods" bson:"paymentMethods"`
	ReferralCode   string               `json:"referralCode" bson:"referralCode"`
	ReferredBy     string               `json:"referredBy,omitempty" bson:"referredBy,omitempty"`
	ReferredAt     *time.Time           `json:"referredAt,omitempty" bson:"referredAt,omitempty"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// ProfileUpdate is the body of a profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name          *string               `json:"name"`
	Email         *string               `json:"email"`
	Phone         *string               `json:"phone"`
	Notifications *NotificationSettings `json:"notifications"`
}

// PaymentMethodRequest adds a payout destination
type PaymentMethodRequest struct {
	Type    WithdrawalMethod `json:"type"`
	Details string           `json:"details"`
}

// Referral is one referred user as shown to the referrer
type Referral struct {
	Email    string    `json:"email"` // masked
	JoinedAt time.Time `json:"joinedAt"`
	Status   string    `json:"status"` // active once they have earned
	Earned   float64   `json:"earned"` // commission paid to the referrer
}

// ReferralStats summarizes a user's referrals
type ReferralStats struct {
	TotalReferrals  int     `json:"totalReferrals"`
	ActiveReferrals int     `json:"activeReferrals"`
	TotalEarned     float64 `json:"totalEarned"`
	PendingEarnings float64 `json:"pendingEarnings"`
}

// ReferralSummary is the referral page for a user
type ReferralSummary struct {
	Code           string        `json:"code"`
	Link           string        `json:"link"`
	CommissionRate float64       `json:"commissionRate"`
	Stats          ReferralStats `json:"stats"`
	Referrals      []Referral    `json:"referrals"`
}

// ReferralClaim is the body of a referral code claim
type ReferralClaim struct {
	Code string `json:"code"`
}
