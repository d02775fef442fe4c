package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
)

const affiliateCodeLength = 8

// AffiliateService 推广返利业务服务
type AffiliateService struct {
	repo           repository.AffiliateRepository
	userRepo       repository.UserRepository
	settingService *SettingService
	ledgerService  *LedgerService
}

// NewAffiliateService 创建推广返利服务
func NewAffiliateService(
	repo repository.AffiliateRepository,
	userRepo repository.UserRepository,
	settingService *SettingService,
	ledgerService *LedgerService,
) *AffiliateService {
	return &AffiliateService{
		repo:           repo,
		userRepo:       userRepo,
		settingService: settingService,
		ledgerService:  ledgerService,
	}
}

// AffiliateTrackClickInput 推广点击记录输入
type AffiliateTrackClickInput struct {
	AffiliateCode string
	LandingPath   string
	Referer       string
	ClientIP      string
	UserAgent     string
}

// AffiliateDashboard 推广用户中心数据
type AffiliateDashboard struct {
	Opened              bool         `json:"opened"`
	AffiliateCode       string       `json:"affiliate_code"`
	PromotionPath       string       `json:"promotion_path"`
	ClickCount          int64        `json:"click_count"`
	ValidOrderCount     int64        `json:"valid_order_count"`
	ConversionRate      float64      `json:"conversion_rate"`
	DirectDownlineCount int64        `json:"direct_downline_count"`
	PendingCommission   models.Money `json:"pending_commission"`
	AvailableCommission models.Money `json:"available_commission"`
	Balance             models.Money `json:"balance"`
}

// AffiliateStats 推广统计数据
type AffiliateStats struct {
	ClickCount          int64
	ValidOrderCount     int64
	ConversionRate      float64
	PendingCommission   models.Money
	AvailableCommission models.Money
}

// AffiliateAdminUserItem 后台推广用户列表项
type AffiliateAdminUserItem struct {
	Profile models.AffiliateProfile `json:"profile"`
	Stats   AffiliateStats          `json:"stats"`
}

// OpenAffiliate 用户开通推广档案
// sponsorCode 非空时同步绑定上级。
func (s *AffiliateService) OpenAffiliate(userID uint, sponsorCode string) (*models.AffiliateProfile, error) {
	if userID == 0 {
		return nil, ErrUserDisabled
	}
	if s.repo == nil || s.userRepo == nil {
		return nil, ErrNotFound
	}
	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return nil, ErrAffiliateDisabled
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(user.Status) == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	existing, err := s.repo.GetProfileByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAffiliateAlreadyOpened
	}

	var sponsorID *uint
	if code := normalizeAffiliateCode(sponsorCode); code != "" {
		sponsor, err := s.repo.GetProfileByCode(code)
		if err != nil {
			return nil, err
		}
		if sponsor == nil || strings.TrimSpace(sponsor.Status) != constants.AffiliateProfileStatusActive {
			return nil, ErrAffiliateCodeInvalid
		}
		if sponsor.UserID == userID {
			return nil, ErrSponsorSelf
		}
		id := sponsor.ID
		sponsorID = &id
	}

	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, genErr := generateAffiliateCode()
		if genErr != nil {
			return nil, genErr
		}
		profile := &models.AffiliateProfile{
			UserID:        userID,
			AffiliateCode: code,
			SponsorID:     sponsorID,
			Status:        constants.AffiliateProfileStatusActive,
		}
		if err := s.repo.CreateProfile(profile); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		created, err := s.repo.GetProfileByID(profile.ID)
		if err != nil {
			return nil, err
		}
		if created != nil {
			return created, nil
		}
		return profile, nil
	}
	return nil, ErrAffiliateCodeInvalid
}

// AssignSponsor 绑定或变更上级推广用户
// sponsorProfileID 为 0 表示解绑；绑定前沿候选上级的推荐链向上校验，拒绝成环。
func (s *AffiliateService) AssignSponsor(profileID, sponsorProfileID uint) (*models.AffiliateProfile, error) {
	if profileID == 0 {
		return nil, ErrNotFound
	}
	profile, err := s.repo.GetProfileByID(profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}

	if sponsorProfileID == 0 {
		if err := s.repo.UpdateProfileSponsor(profileID, nil, time.Now()); err != nil {
			return nil, err
		}
		return s.repo.GetProfileByID(profileID)
	}

	if sponsorProfileID == profileID {
		return nil, ErrSponsorSelf
	}
	sponsor, err := s.repo.GetProfileByID(sponsorProfileID)
	if err != nil {
		return nil, err
	}
	if sponsor == nil {
		return nil, ErrSponsorNotFound
	}

	cyclic, err := s.wouldCreateCycle(profileID, sponsorProfileID)
	if err != nil {
		return nil, err
	}
	if cyclic {
		return nil, ErrSponsorCycle
	}

	id := sponsor.ID
	if err := s.repo.UpdateProfileSponsor(profileID, &id, time.Now()); err != nil {
		return nil, err
	}
	return s.repo.GetProfileByID(profileID)
}

// wouldCreateCycle 判断把 sponsorID 设为 profileID 的上级是否成环
func (s *AffiliateService) wouldCreateCycle(profileID, sponsorID uint) (bool, error) {
	seen := map[uint]struct{}{}
	current := sponsorID
	for current != 0 {
		if current == profileID {
			return true, nil
		}
		if _, ok := seen[current]; ok {
			// 既有数据已经成环，禁止继续挂接
			return true, nil
		}
		seen[current] = struct{}{}
		next, err := s.repo.GetSponsorID(current)
		if err != nil {
			return false, err
		}
		if next == nil {
			break
		}
		current = *next
	}
	return false, nil
}

// UpdateProfileStatus 管理端更新推广档案状态
func (s *AffiliateService) UpdateProfileStatus(profileID uint, rawStatus string) (*models.AffiliateProfile, error) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	if status != constants.AffiliateProfileStatusActive && status != constants.AffiliateProfileStatusDisabled {
		return nil, ErrAffiliateProfileStatusInvalid
	}
	profile, err := s.repo.GetProfileByID(profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	if err := s.repo.UpdateProfileStatus(profileID, status, time.Now()); err != nil {
		return nil, err
	}
	return s.repo.GetProfileByID(profileID)
}

// TrackClick 记录推广链接点击
func (s *AffiliateService) TrackClick(input AffiliateTrackClickInput) error {
	if s.repo == nil {
		return nil
	}
	code := normalizeAffiliateCode(input.AffiliateCode)
	if code == "" {
		return nil
	}
	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled {
		return nil
	}
	profile, err := s.repo.GetProfileByCode(code)
	if err != nil {
		return err
	}
	if profile == nil || strings.TrimSpace(profile.Status) != constants.AffiliateProfileStatusActive {
		return nil
	}

	click := &models.AffiliateClick{
		AffiliateProfileID: profile.ID,
		Code:               code,
		IP:                 strings.TrimSpace(input.ClientIP),
		UserAgent:          strings.TrimSpace(input.UserAgent),
		Referer:            strings.TrimSpace(input.Referer),
		LandingPath:        strings.TrimSpace(input.LandingPath),
		CreatedAt:          time.Now(),
	}
	return s.repo.CreateClick(click)
}

// ResolveOrderAffiliateSnapshot 下单时解析推广归因快照
// 返回推广档案ID与推广码；码无效、档案停用或自购时返回空。
func (s *AffiliateService) ResolveOrderAffiliateSnapshot(userID uint, rawCode string) (*uint, string, error) {
	code := normalizeAffiliateCode(rawCode)
	if code == "" || s.repo == nil {
		return nil, "", nil
	}
	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return nil, "", err
	}
	if !setting.Enabled {
		return nil, "", nil
	}
	profile, err := s.repo.GetProfileByCode(code)
	if err != nil {
		return nil, "", err
	}
	if profile == nil || strings.TrimSpace(profile.Status) != constants.AffiliateProfileStatusActive {
		return nil, "", nil
	}
	if userID > 0 && profile.UserID == userID {
		return nil, "", nil
	}
	id := profile.ID
	return &id, profile.AffiliateCode, nil
}

// GetProfileByUserID 查询用户的推广档案
func (s *AffiliateService) GetProfileByUserID(userID uint) (*models.AffiliateProfile, error) {
	return s.repo.GetProfileByUserID(userID)
}

// GetUserDashboard 推广用户中心数据
func (s *AffiliateService) GetUserDashboard(userID uint) (AffiliateDashboard, error) {
	dashboard := AffiliateDashboard{
		Opened:              false,
		PendingCommission:   models.NewMoneyFromDecimal(decimal.Zero),
		AvailableCommission: models.NewMoneyFromDecimal(decimal.Zero),
		Balance:             models.NewMoneyFromDecimal(decimal.Zero),
	}
	if userID == 0 || s.repo == nil {
		return dashboard, nil
	}
	profile, err := s.repo.GetProfileByUserID(userID)
	if err != nil {
		return dashboard, err
	}
	if profile == nil {
		return dashboard, nil
	}

	stats, err := s.buildProfileStats(profile.ID)
	if err != nil {
		return dashboard, err
	}
	downlines, err := s.repo.CountProfilesBySponsor(profile.ID)
	if err != nil {
		return dashboard, err
	}

	dashboard.Opened = true
	dashboard.AffiliateCode = profile.AffiliateCode
	dashboard.PromotionPath = "/?aff=" + profile.AffiliateCode
	dashboard.ClickCount = stats.ClickCount
	dashboard.ValidOrderCount = stats.ValidOrderCount
	dashboard.ConversionRate = stats.ConversionRate
	dashboard.DirectDownlineCount = downlines
	dashboard.PendingCommission = stats.PendingCommission
	dashboard.AvailableCommission = stats.AvailableCommission

	if s.ledgerService != nil {
		account, err := s.ledgerService.GetAccount(profile.ID)
		if err != nil {
			return dashboard, err
		}
		if account != nil {
			dashboard.Balance = account.Balance
		}
	}
	return dashboard, nil
}

// ListUserCommissions 查询用户佣金记录
func (s *AffiliateService) ListUserCommissions(userID uint, page, pageSize int, status string) ([]models.AffiliateCommission, int64, error) {
	profile, err := s.repo.GetProfileByUserID(userID)
	if err != nil {
		return nil, 0, err
	}
	if profile == nil {
		return []models.AffiliateCommission{}, 0, nil
	}
	return s.repo.ListCommissions(repository.AffiliateCommissionListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: profile.ID,
		Status:             strings.TrimSpace(status),
	})
}

// ListAdminProfiles 后台推广用户列表（带统计）
func (s *AffiliateService) ListAdminProfiles(filter repository.AffiliateProfileListFilter) ([]AffiliateAdminUserItem, int64, error) {
	profiles, total, err := s.repo.ListProfiles(filter)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, 0, len(profiles))
	for _, profile := range profiles {
		ids = append(ids, profile.ID)
	}
	statsMap, err := s.repo.GetProfileStatsBatch(ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]AffiliateAdminUserItem, 0, len(profiles))
	for _, profile := range profiles {
		aggregate := statsMap[profile.ID]
		items = append(items, AffiliateAdminUserItem{
			Profile: profile,
			Stats: AffiliateStats{
				ClickCount:          aggregate.ClickCount,
				ValidOrderCount:     aggregate.ValidOrderCount,
				ConversionRate:      calcAffiliateConversion(aggregate.ValidOrderCount, aggregate.ClickCount),
				PendingCommission:   models.NewMoneyFromDecimal(aggregate.PendingCommission),
				AvailableCommission: models.NewMoneyFromDecimal(aggregate.AvailableCommission),
			},
		})
	}
	return items, total, nil
}

func (s *AffiliateService) buildProfileStats(profileID uint) (AffiliateStats, error) {
	stats := AffiliateStats{
		PendingCommission:   models.NewMoneyFromDecimal(decimal.Zero),
		AvailableCommission: models.NewMoneyFromDecimal(decimal.Zero),
	}
	statsMap, err := s.repo.GetProfileStatsBatch([]uint{profileID})
	if err != nil {
		return stats, err
	}
	aggregate := statsMap[profileID]
	stats.ClickCount = aggregate.ClickCount
	stats.ValidOrderCount = aggregate.ValidOrderCount
	stats.ConversionRate = calcAffiliateConversion(aggregate.ValidOrderCount, aggregate.ClickCount)
	stats.PendingCommission = models.NewMoneyFromDecimal(aggregate.PendingCommission)
	stats.AvailableCommission = models.NewMoneyFromDecimal(aggregate.AvailableCommission)
	return stats, nil
}

func calcAffiliateConversion(validOrders, clicks int64) float64 {
	if clicks <= 0 {
		return 0
	}
	rate := float64(validOrders) / float64(clicks) * 100
	return float64(int(rate*100)) / 100
}

func normalizeAffiliateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateAffiliateCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(affiliateCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < affiliateCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
