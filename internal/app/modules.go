package app

import (
	"github.com/vk/fieldengine/internal/registry"
	"github.com/vk/fieldengine/modules/basic"
	"github.com/vk/fieldengine/modules/composite"
	"github.com/vk/fieldengine/modules/finiteelement"
	"github.com/vk/fieldengine/modules/nodesetops"
)

// coreModules is the definitive list of all modules that are compiled into
// the fieldengine binary.
var coreModules = []registry.Module{
	&basic.Module{},
	&composite.Module{},
	&finiteelement.Module{},
	&nodesetops.Module{},
}
