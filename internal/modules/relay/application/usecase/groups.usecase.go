package usecase

import "mesaYaRelay/internal/modules/relay/application/port"

type ListGroupsUseCase struct {
	directory port.GroupDirectory
}

func NewListGroupsUseCase(directory port.GroupDirectory) *ListGroupsUseCase {
	return &ListGroupsUseCase{directory: directory}
}

func (uc *ListGroupsUseCase) Execute() []string {
	return uc.directory.List()
}
