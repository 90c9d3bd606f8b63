package services

import (
	"crypto/rand"
	"errors"

	"anime-loyalty-system/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReferralCookieName holds the active referral code on the client for the
// attribution window.
const ReferralCookieName = "affiliate_ref"

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// AffiliateService implements click and conversion attribution. Everything
// here is best-effort: tracking failures are logged and swallowed so they can
// never block a signup or purchase.
type AffiliateService struct {
	DB               *gorm.DB
	SignupCommission float64
	DefaultRate      float64
}

func NewAffiliateService(db *gorm.DB, signupCommission, defaultRate float64) *AffiliateService {
	return &AffiliateService{
		DB:               db,
		SignupCommission: signupCommission,
		DefaultRate:      defaultRate,
	}
}

// CreateAffiliate enrolls a user as an affiliate with a fresh referral code.
// Idempotent: an already-enrolled user gets their existing record back.
func (s *AffiliateService) CreateAffiliate(userID string) (*models.Affiliate, error) {
	var existing models.Affiliate
	err := s.DB.First(&existing, "user_id = ?", userID).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code, err := s.generateReferralCode()
	if err != nil {
		return nil, err
	}

	affiliate := models.Affiliate{
		ID:             uuid.NewString(),
		UserID:         userID,
		ReferralCode:   code,
		CommissionRate: s.DefaultRate,
		Status:         models.AffiliateActive,
	}
	if err := s.DB.Create(&affiliate).Error; err != nil {
		return nil, err
	}
	return &affiliate, nil
}

func (s *AffiliateService) generateReferralCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for i := range buf {
			buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := string(buf)

		var n int64
		if err := s.DB.Model(&models.Affiliate{}).Where("referral_code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

// ActiveByCode resolves a referral code to an active affiliate. Returns
// (nil, nil) when the code does not resolve, so callers can no-op silently.
func (s *AffiliateService) ActiveByCode(code string) (*models.Affiliate, error) {
	if code == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	err := s.DB.First(&affiliate, "referral_code = ? AND status = ?", code, models.AffiliateActive).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// ByUserID returns the affiliate record owned by a user, or (nil, nil).
func (s *AffiliateService) ByUserID(userID string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := s.DB.First(&affiliate, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// TrackClick appends a click record for a referral landing visit. Silently
// no-ops when the code does not resolve to an active affiliate.
func (s *AffiliateService) TrackClick(code, ipAddress, userAgent, referrer string) {
	affiliate, err := s.ActiveByCode(code)
	if err != nil {
		logrus.WithError(err).Warn("affiliate: click lookup failed")
		return
	}
	if affiliate == nil {
		return
	}

	click := models.AffiliateClick{
		ID:          uuid.NewString(),
		AffiliateID: affiliate.ID,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Referrer:    referrer,
	}
	if err := s.DB.Create(&click).Error; err != nil {
		logrus.WithError(err).Warn("affiliate: failed to record click")
	}
}

// TrackConversion records a signup or purchase conversion for the referral
// code read from the visitor's cookie. Returns true when a conversion row was
// persisted so the caller clears the cookie; one click attributes at most one
// conversion per cookie lifetime.
func (s *AffiliateService) TrackConversion(code, userID string, conversionType models.ConversionType, orderValue *float64) bool {
	if code == "" {
		return false
	}

	affiliate, err := s.ActiveByCode(code)
	if err != nil {
		logrus.WithError(err).Warn("affiliate: conversion lookup failed")
		return false
	}
	if affiliate == nil {
		return false
	}

	var commission float64
	switch conversionType {
	case models.ConversionSignup:
		commission = s.SignupCommission
	case models.ConversionPurchase:
		if orderValue != nil {
			commission = *orderValue * affiliate.CommissionRate
		}
	default:
		logrus.Warnf("affiliate: unknown conversion type %q", conversionType)
		return false
	}

	conversion := models.AffiliateConversion{
		ID:               uuid.NewString(),
		AffiliateID:      affiliate.ID,
		UserID:           userID,
		ConversionType:   conversionType,
		OrderValue:       orderValue,
		CommissionAmount: commission,
		Status:           models.ConversionPending,
	}
	if err := s.DB.Create(&conversion).Error; err != nil {
		logrus.WithError(err).Warn("affiliate: failed to record conversion")
		return false
	}
	return true
}

// Stats derives the dashboard counters for one affiliate.
func (s *AffiliateService) Stats(affiliateID string) (*models.AffiliateStats, error) {
	var clicks int64
	if err := s.DB.Model(&models.AffiliateClick{}).Where("affiliate_id = ?", affiliateID).Count(&clicks).Error; err != nil {
		return nil, err
	}

	var conversions []models.AffiliateConversion
	if err := s.DB.Where("affiliate_id = ?", affiliateID).Find(&conversions).Error; err != nil {
		return nil, err
	}

	stats := models.AffiliateStats{TotalClicks: clicks}
	for _, c := range conversions {
		switch c.ConversionType {
		case models.ConversionSignup:
			stats.TotalSignups++
		case models.ConversionPurchase:
			stats.TotalPurchases++
		}
		switch c.Status {
		case models.ConversionApproved, models.ConversionPaid:
			stats.TotalEarnings += c.CommissionAmount
		case models.ConversionPending:
			stats.PendingEarnings += c.CommissionAmount
		}
	}
	if clicks > 0 {
		stats.ConversionRate = float64(stats.TotalSignups+stats.TotalPurchases) / float64(clicks) * 100
	}
	return &stats, nil
}

// Conversions lists an affiliate's conversions, newest first.
func (s *AffiliateService) Conversions(affiliateID string) ([]models.AffiliateConversion, error) {
	var conversions []models.AffiliateConversion
	err := s.DB.Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Find(&conversions).Error
	return conversions, err
}

var conversionTransitions = map[models.ConversionStatus]models.ConversionStatus{
	models.ConversionApproved: models.ConversionPending,
	models.ConversionPaid:     models.ConversionApproved,
}

// UpdateConversionStatus advances a conversion along pending -> approved ->
// paid. Any other transition is rejected.
func (s *AffiliateService) UpdateConversionStatus(conversionID string, status models.ConversionStatus) (*models.AffiliateConversion, error) {
	required, ok := conversionTransitions[status]
	if !ok {
		return nil, errors.New("invalid conversion status")
	}

	var conversion models.AffiliateConversion
	if err := s.DB.First(&conversion, "id = ?", conversionID).Error; err != nil {
		return nil, err
	}
	if conversion.Status != required {
		return nil, errors.New("conversion is not in a state that allows this transition")
	}

	conversion.Status = status
	if err := s.DB.Save(&conversion).Error; err != nil {
		return nil, err
	}
	return &conversion, nil
}
