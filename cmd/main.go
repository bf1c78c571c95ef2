package main

import (
	"github.com/corray333/pedidos-svc/internal/app"
	"github.com/corray333/pedidos-svc/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
