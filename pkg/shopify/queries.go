package shopify

const inventoryItemFields = `
      id
      sku
      tracked
      variant {
        id
        title
        image { url }
        product {
          id
          title
          featuredMedia { preview { image { url } } }
        }
      }
      inventoryLevels(first: 10) {
        edges {
          node {
            location { id name }
            quantities(names: ["available", "committed", "incoming", "on_hand", "reserved"]) {
              name
              quantity
            }
          }
        }
      }`

const moneyBagFields = `shopMoney { amount currencyCode }`

const ordersQuery = `query ($cursor: String, $first: Int!) {
  orders(first: $first, after: $cursor, sortKey: ID) {
    edges {
      node {
        id
        name
        createdAt
        updatedAt
        currencyCode
        email
        displayFinancialStatus
        displayFulfillmentStatus
        tags
        subtotalPriceSet { ` + moneyBagFields + ` }
        totalPriceSet { ` + moneyBagFields + ` }
        totalTaxSet { ` + moneyBagFields + ` }
        totalDiscountsSet { ` + moneyBagFields + ` }
        totalShippingPriceSet { ` + moneyBagFields + ` }
        lineItems(first: 100) {
          edges {
            node {
              id
              title
              quantity
              sku
              vendor
              originalUnitPriceSet { ` + moneyBagFields + ` }
              discountAllocations { allocatedAmountSet { ` + moneyBagFields + ` } }
              variant { id title }
              product { id }
            }
          }
        }
        shippingAddress {
          name company address1 address2 city province provinceCode country countryCodeV2 zip phone
        }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const fulfillmentsQuery = `query ($cursor: String, $first: Int!) {
  orders(first: $first, after: $cursor, sortKey: ID, query: "fulfillment_status:fulfilled") {
    edges {
      node {
        id
        name
        shippingAddress {
          name company address1 address2 city province provinceCode country countryCodeV2 zip phone
        }
        fulfillments {
          id
          status
          displayStatus
          trackingInfo { number url company }
          createdAt
          updatedAt
        }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const inventoryItemsQuery = `query ($cursor: String, $first: Int!) {
  inventoryItems(first: $first, after: $cursor) {
    edges {
      node {` + inventoryItemFields + `
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const inventoryItemByIDQuery = `query inventoryItemById($id: ID!) {
  inventoryItem(id: $id) {` + inventoryItemFields + `
  }
}`

const shopQuery = `query {
  shop {
    name
    email
    currencyCode
    myshopifyDomain
    billingAddress {
      company address1 address2 city province provinceCode country countryCodeV2 zip phone
    }
  }
}`
