package main

import (
	"go.uber.org/fx"

	"github.com/middlemark/middlemark/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
