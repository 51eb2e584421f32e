package usecase

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"mesaYaRelay/internal/modules/relay/domain"
	"mesaYaRelay/internal/shared/auth"
)

// JoinGroupUseCase turns join request parameters into the member attributes a
// session runs with. It never touches the registry, so a rejected join
// creates no group.
type JoinGroupUseCase struct {
	gate *auth.Gate
}

func NewJoinGroupUseCase(gate *auth.Gate) *JoinGroupUseCase {
	return &JoinGroupUseCase{gate: gate}
}

// Open accepts an unauthenticated member described by raw parameters.
func (uc *JoinGroupUseCase) Open(ctx context.Context, groupID, tableNumber, role string) (domain.Member, error) {
	_, span := tracer().Start(ctx, "relay.join.open")
	defer span.End()

	member, err := domain.NewOpenMember(groupID, tableNumber, role)
	if err != nil {
		recordError(span, err)
		return domain.Member{}, err
	}
	span.SetAttributes(
		attribute.String("relay.group_id", member.GroupID),
		attribute.Int("relay.table_number", int(member.TableNumber)),
	)
	return member, nil
}

// Authenticated accepts a member whose table comes from a verified token.
func (uc *JoinGroupUseCase) Authenticated(ctx context.Context, authorization, groupID string) (domain.Member, error) {
	_, span := tracer().Start(ctx, "relay.join.token")
	defer span.End()

	data, err := uc.gate.Authenticate(authorization, groupID)
	if err != nil {
		recordError(span, err)
		return domain.Member{}, err
	}
	member := domain.Member{
		GroupID:        data.GroupID,
		TableNumber:    data.TableNumber(),
		Authenticated:  true,
		Subject:        data.Subject(),
		RestaurantName: data.RestaurantName(),
		TableCount:     data.TableCount(),
	}
	span.SetAttributes(
		attribute.String("relay.group_id", member.GroupID),
		attribute.Int("relay.table_number", int(member.TableNumber)),
		attribute.String("enduser.id", member.Subject),
	)
	return member, nil
}
