package skills

import "sync"

// Skill names.
const (
	CreateCollection     = "aelf-forest-create-collection"
	CreateItem           = "aelf-forest-create-item"
	BatchCreateItems     = "aelf-forest-batch-create-items"
	ListItem             = "aelf-forest-list-item"
	BuyNow               = "aelf-forest-buy-now"
	MakeOffer            = "aelf-forest-make-offer"
	DealOffer            = "aelf-forest-deal-offer"
	CancelOffer          = "aelf-forest-cancel-offer"
	CancelListing        = "aelf-forest-cancel-listing"
	TransferItem         = "aelf-forest-transfer-item"
	GetPriceQuote        = "aelf-forest-get-price-quote"
	IssueItem            = "aelf-forest-issue-item"
	PlaceBid             = "aelf-forest-place-bid"
	ClaimDrop            = "aelf-forest-claim-drop"
	QueryDrop            = "aelf-forest-query-drop"
	WhitelistRead        = "aelf-forest-whitelist-read"
	WhitelistManage      = "aelf-forest-whitelist-manage"
	AIGenerate           = "aelf-forest-ai-generate"
	AIRetry              = "aelf-forest-ai-retry"
	CreatePlatformNFT    = "aelf-forest-create-platform-nft"
	MiniappAction        = "aelf-forest-miniapp-action"
	UpdateProfile        = "aelf-forest-update-profile"
	QueryCollections     = "aelf-forest-query-collections"
	WatchMarketSignals   = "aelf-forest-watch-market-signals"
	ContractMarket       = "aelf-forest-contract-market"
	ContractMultitoken   = "aelf-forest-contract-multitoken"
	ContractTokenAdapter = "aelf-forest-contract-token-adapter"
	ContractProxy        = "aelf-forest-contract-proxy"
	ContractAuction      = "aelf-forest-contract-auction"
	ContractDrop         = "aelf-forest-contract-drop"
	ContractWhitelist    = "aelf-forest-contract-whitelist"
	ContractMiniapp      = "aelf-forest-contract-miniapp"
	APIMarket            = "aelf-forest-api-market"
	APINFT               = "aelf-forest-api-nft"
	APICollection        = "aelf-forest-api-collection"
	APISync              = "aelf-forest-api-sync"
	APISeedAuction       = "aelf-forest-api-seed-auction"
	APIDrop              = "aelf-forest-api-drop"
	APIWhitelist         = "aelf-forest-api-whitelist"
	APIAI                = "aelf-forest-api-ai"
	APIPlatform          = "aelf-forest-api-platform"
	APIMiniapp           = "aelf-forest-api-miniapp"
	APIUser              = "aelf-forest-api-user"
	APISystem            = "aelf-forest-api-system"
	APIRealtime          = "aelf-forest-api-realtime"
)

// Table is the static skill catalog.
var Table = []Entry{
	{Name: CreateCollection, In: "schema.workflow.createCollection.in.v1", Out: "schema.workflow.createCollection.out.v1", Tier: TierP0},
	{Name: CreateItem, In: "schema.workflow.createItem.in.v1", Out: "schema.workflow.createItem.out.v1", Tier: TierP0},
	{Name: BatchCreateItems, In: "schema.workflow.batchCreateItems.in.v1", Out: "schema.workflow.batchCreateItems.out.v1", Tier: TierP0},
	{Name: ListItem, In: "schema.workflow.listItem.in.v1", Out: "schema.workflow.listItem.out.v1", Tier: TierP0},
	{Name: BuyNow, In: "schema.workflow.buyNow.in.v1", Out: "schema.workflow.buyNow.out.v1", Tier: TierP0},
	{Name: MakeOffer, In: "schema.workflow.makeOffer.in.v1", Out: "schema.workflow.makeOffer.out.v1", Tier: TierP0},
	{Name: DealOffer, In: "schema.workflow.dealOffer.in.v1", Out: "schema.workflow.dealOffer.out.v1", Tier: TierP0},
	{Name: CancelOffer, In: "schema.workflow.cancelOffer.in.v1", Out: "schema.workflow.cancelOffer.out.v1", Tier: TierP0},
	{Name: CancelListing, In: "schema.workflow.cancelListing.in.v1", Out: "schema.workflow.cancelListing.out.v1", Tier: TierP0},
	{Name: TransferItem, In: "schema.workflow.transferItem.in.v1", Out: "schema.workflow.transferItem.out.v1", Tier: TierP0},
	{Name: GetPriceQuote, In: "schema.workflow.getPriceQuote.in.v1", Out: "schema.workflow.getPriceQuote.out.v1", Tier: TierP0},
	{Name: IssueItem, In: "schema.workflow.issueItem.in.v1", Out: "schema.workflow.issueItem.out.v1", Tier: TierP1},
	{Name: PlaceBid, In: "schema.workflow.placeBid.in.v1", Out: "schema.workflow.placeBid.out.v1", Tier: TierP1},
	{Name: ClaimDrop, In: "schema.workflow.claimDrop.in.v1", Out: "schema.workflow.claimDrop.out.v1", Tier: TierP1},
	{Name: QueryDrop, In: "schema.workflow.queryDrop.in.v1", Out: "schema.workflow.queryDrop.out.v1", Tier: TierP1},
	{Name: WhitelistRead, In: "schema.workflow.whitelistRead.in.v1", Out: "schema.workflow.whitelistRead.out.v1", Tier: TierP1},
	{Name: WhitelistManage, In: "schema.workflow.whitelistManage.in.v1", Out: "schema.workflow.whitelistManage.out.v1", Tier: TierP1},
	{Name: AIGenerate, In: "schema.workflow.aiGenerate.in.v1", Out: "schema.workflow.aiGenerate.out.v1", Tier: TierP2},
	{Name: AIRetry, In: "schema.workflow.aiRetry.in.v1", Out: "schema.workflow.aiRetry.out.v1", Tier: TierP2},
	{Name: CreatePlatformNFT, In: "schema.workflow.platformNft.in.v1", Out: "schema.workflow.platformNft.out.v1", Tier: TierP2},
	{Name: MiniappAction, In: "schema.workflow.miniappAction.in.v1", Out: "schema.workflow.miniappAction.out.v1", Tier: TierP2},
	{Name: UpdateProfile, In: "schema.workflow.updateProfile.in.v1", Out: "schema.workflow.updateProfile.out.v1", Tier: TierP2},
	{Name: QueryCollections, In: "schema.workflow.queryCollections.in.v1", Out: "schema.workflow.queryCollections.out.v1", Tier: TierP2},
	{Name: WatchMarketSignals, In: "schema.workflow.watchSignals.in.v1", Out: "schema.workflow.watchSignals.out.v1", Tier: TierP2},
	{Name: ContractMarket, In: "schema.method.contract.market.in.v1", Out: "schema.method.contract.market.out.v1", Tier: TierP0},
	{Name: ContractMultitoken, In: "schema.method.contract.multitoken.in.v1", Out: "schema.method.contract.multitoken.out.v1", Tier: TierP0},
	{Name: ContractTokenAdapter, In: "schema.method.contract.tokenAdapter.in.v1", Out: "schema.method.contract.tokenAdapter.out.v1", Tier: TierP0},
	{Name: ContractProxy, In: "schema.method.contract.proxy.in.v1", Out: "schema.method.contract.proxy.out.v1", Tier: TierP0},
	{Name: ContractAuction, In: "schema.method.contract.auction.in.v1", Out: "schema.method.contract.auction.out.v1", Tier: TierP1},
	{Name: ContractDrop, In: "schema.method.contract.drop.in.v1", Out: "schema.method.contract.drop.out.v1", Tier: TierP1},
	{Name: ContractWhitelist, In: "schema.method.contract.whitelist.in.v1", Out: "schema.method.contract.whitelist.out.v1", Tier: TierP1},
	{Name: ContractMiniapp, In: "schema.method.contract.miniapp.in.v1", Out: "schema.method.contract.miniapp.out.v1", Tier: TierP2},
	{Name: APIMarket, In: "schema.method.api.market.in.v1", Out: "schema.method.api.market.out.v1", Tier: TierP0},
	{Name: APINFT, In: "schema.method.api.nft.in.v1", Out: "schema.method.api.nft.out.v1", Tier: TierP0},
	{Name: APICollection, In: "schema.method.api.collection.in.v1", Out: "schema.method.api.collection.out.v1", Tier: TierP0},
	{Name: APISync, In: "schema.method.api.sync.in.v1", Out: "schema.method.api.sync.out.v1", Tier: TierP0},
	{Name: APISeedAuction, In: "schema.method.api.seedAuction.in.v1", Out: "schema.method.api.seedAuction.out.v1", Tier: TierP0},
	{Name: APIDrop, In: "schema.method.api.drop.in.v1", Out: "schema.method.api.drop.out.v1", Tier: TierP1},
	{Name: APIWhitelist, In: "schema.method.api.whitelist.in.v1", Out: "schema.method.api.whitelist.out.v1", Tier: TierP1},
	{Name: APIAI, In: "schema.method.api.ai.in.v1", Out: "schema.method.api.ai.out.v1", Tier: TierP2},
	{Name: APIPlatform, In: "schema.method.api.platform.in.v1", Out: "schema.method.api.platform.out.v1", Tier: TierP2},
	{Name: APIMiniapp, In: "schema.method.api.miniapp.in.v1", Out: "schema.method.api.miniapp.out.v1", Tier: TierP2},
	{Name: APIUser, In: "schema.method.api.user.in.v1", Out: "schema.method.api.user.out.v1", Tier: TierP2},
	{Name: APISystem, In: "schema.method.api.system.in.v1", Out: "schema.method.api.system.out.v1", Tier: TierP2},
	{Name: APIRealtime, In: "schema.method.api.realtime.in.v1", Out: "schema.method.api.realtime.out.v1", Tier: TierP2},
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := New(Table)
	if err != nil {
		panic("skills: invalid static table: " + err.Error())
	}
	return r
})

// Default returns the registry built from Table.
func Default() *Registry {
	return defaultRegistry()
}
