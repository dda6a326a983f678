package handlers

import (
	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/domain"
)

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Phone:              u.Phone,
		PrimaryRole:        u.PrimaryRole,
		FranchiseID:        u.FranchiseID,
		IsActive:           u.IsActive,
		KYCStatus:          u.KYCStatus,
		EmailVerified:      u.EmailVerified,
		WalletBalanceMinor: u.WalletBalanceMinor,
		CreatedAt:          u.CreatedAt,
	}
}

func adminResponse(a *domain.Admin) dto.AdminResponse {
	return dto.AdminResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		RoleID:    a.RoleID,
		LastLogin: a.LastLogin,
	}
}

func activeRoleResponse(r domain.ActiveRole) dto.ActiveRoleResponse {
	return dto.ActiveRoleResponse{
		UserRoleID:  r.UserRoleID,
		RoleID:      r.RoleID,
		Name:        r.Name,
		FranchiseID: r.FranchiseID,
		IsPrimary:   r.IsPrimary,
		AssignedAt:  r.AssignedAt,
	}
}

func resolvedRolesResponse(r *domain.ResolvedRoles) dto.ResolvedRolesResponse {
	resp := dto.ResolvedRolesResponse{
		UserID:      r.UserID,
		FranchiseID: r.FranchiseID,
		ActiveRoles: make([]dto.ActiveRoleResponse, 0, len(r.ActiveRoles)),
		Permissions: r.Permissions,
	}
	if r.PrimaryRole != nil {
		primary := activeRoleResponse(*r.PrimaryRole)
		resp.PrimaryRole = &primary
	}
	for _, role := range r.ActiveRoles {
		resp.ActiveRoles = append(resp.ActiveRoles, activeRoleResponse(role))
	}
	return resp
}

func roleUpgradeResponse(r *domain.RoleUpgradeRequest) dto.RoleUpgradeResponse {
	return dto.RoleUpgradeResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		CurrentRole:   r.CurrentRole,
		RequestedRole: r.RequestedRole,
		Status:        r.Status,
		BusinessData:  r.BusinessData,
		Reason:        r.Reason,
		ReviewedBy:    r.ReviewedBy,
		ReviewedAt:    r.ReviewedAt,
		AdminNotes:    r.AdminNotes,
		FranchiseID:   r.FranchiseID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func roleUpgradeList(list []domain.RoleUpgradeRequest) []dto.RoleUpgradeResponse {
	out := make([]dto.RoleUpgradeResponse, 0, len(list))
	for i := range list {
		out = append(out, roleUpgradeResponse(&list[i]))
	}
	return out
}

func onboardingResponse(a *domain.OnboardingApplication) dto.OnboardingResponse {
	completed := a.CompletedSteps
	if completed == nil {
		completed = []int{}
	}
	return dto.OnboardingResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		RequestedRoleID: a.RequestedRoleID,
		FranchiseID:     a.FranchiseID,
		CurrentStep:     a.CurrentStep,
		CompletedSteps:  completed,
		FormData:        a.FormData,
		Documents:       a.Documents,
		Status:          a.Status,
		ReviewedBy:      a.ReviewedBy,
		ReviewedAt:      a.ReviewedAt,
		ReviewNotes:     a.ReviewNotes,
		SubmittedAt:     a.SubmittedAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func onboardingList(list []domain.OnboardingApplication) []dto.OnboardingResponse {
	out := make([]dto.OnboardingResponse, 0, len(list))
	for i := range list {
		out = append(out, onboardingResponse(&list[i]))
	}
	return out
}

func franchiseResponse(f *domain.Franchise) dto.FranchiseResponse {
	return dto.FranchiseResponse{
		ID:        f.ID,
		Name:      f.Name,
		Subdomain: f.Subdomain,
		Status:    f.Status,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func roleResponse(r *domain.Role) dto.RoleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = domain.Permissions{}
	}
	return dto.RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		IsActive:    r.IsActive,
		FranchiseID: r.FranchiseID,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}

func leadResponse(l *domain.Lead) dto.LeadResponse {
	return dto.LeadResponse{
		ID:                l.ID,
		FranchiseID:       l.FranchiseID,
		ProductType:       l.ProductType,
		LeadType:          l.LeadType,
		Status:            l.Status,
		IncentiveType:     l.IncentiveType,
		IncentiveStatus:   l.IncentiveStatus,
		ExpectedPayout:    l.ExpectedPayout,
		Name:              l.Name,
		Email:             l.Email,
		Phone:             l.Phone,
		City:              l.City,
		Requirement:       l.Requirement,
		ProductDetails:    l.ProductDetails,
		ConsentConfirmed:  l.ConsentConfirmed,
		ConvertToReferral: l.ConvertToReferral,
		CreatedAt:         l.CreatedAt,
	}
}
